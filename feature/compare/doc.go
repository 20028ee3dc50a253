// Package compare exposes environment comparison over HTTP.
//
// Routes:
//
//	GET    /compare?env=prod&env=dev&check=schema   difference reports as JSON
//	GET    /compare/text?env=prod,dev               difference tables as text
//	GET    /compare/plan?source=prod&target=dev     dry-run sync plan
//	GET    /snapshots?ref=prod                      snapshot without ids or credentials
//	GET    /dumps                                   stored dump keys
//	POST   /dumps?env=prod&name=nightly/prod.json   store a dump
//	DELETE /dumps/nightly/prod.json                 remove a dump
//
// References accept everything the CLI accepts: environment names, dump
// files, s3:// urls and db:<name> schemas. The plan route never mutates an
// environment.
package compare
