// Package utils provides loose type conversions shared by the snapshot model
// and the schema inspector.
package utils
