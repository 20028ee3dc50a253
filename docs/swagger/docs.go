// Package swagger holds the OpenAPI document served under /swagger.
//
// It follows the layout produced by `swag init -g cmd/serve.go -o docs/swagger`
// and is regenerated the same way when handler annotations change.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    },
    "security": [
        {
            "ApiKeyAuth": []
        }
    ],
    "paths": {
        "/compare": {
            "get": {
                "description": "Resolves every environment and compares them against the first one. Environments may be console applications, s3:// dumps or db:<name> schemas.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "compare"
                ],
                "summary": "Compare Environments",
                "parameters": [
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Environments, reference first",
                        "name": "env",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Difference kinds (schema, api, table-perms, role-perms, api-perms)",
                        "name": "check",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Comparison reports",
                        "schema": {
                            "$ref": "#/definitions/compare.Comparison"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/compare/plan": {
            "get": {
                "description": "Plans the operations that would bring the targets in line with the source. Destructive operations carry their confirmation prompt.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "compare"
                ],
                "summary": "Plan Sync",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Source environment",
                        "name": "source",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Target environments",
                        "name": "target",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Difference kinds",
                        "name": "check",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Planned operations",
                        "schema": {
                            "$ref": "#/definitions/compare.SyncPlan"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/compare/text": {
            "get": {
                "description": "Same comparison as /compare, rendered as difference tables.",
                "produces": [
                    "text/plain"
                ],
                "tags": [
                    "compare"
                ],
                "summary": "Compare Environments (Text)",
                "parameters": [
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Environments, reference first",
                        "name": "env",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "multi",
                        "description": "Difference kinds",
                        "name": "check",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Rendered tables",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/dumps": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dumps"
                ],
                "summary": "List Dumps",
                "responses": {
                    "200": {
                        "description": "Dump keys",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "array",
                                "items": {
                                    "type": "string"
                                }
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            },
            "post": {
                "description": "Resolves env and stores it, without ids or credentials, in the dump bucket.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dumps"
                ],
                "summary": "Store Dump",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Environment reference",
                        "name": "env",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Dump name, .json is appended when it has no extension",
                        "name": "name",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Stored",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/dumps/{name}": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dumps"
                ],
                "summary": "Remove Dump",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Dump key",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Removed",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/snapshots": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "snapshots"
                ],
                "summary": "Get Snapshot",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Environment reference",
                        "name": "ref",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Snapshot without ids",
                        "schema": {
                            "$ref": "#/definitions/snapshot.Snapshot"
                        }
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "compare.Comparison": {
            "type": "object",
            "properties": {
                "differences": {
                    "type": "boolean"
                },
                "reports": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/diff.Report"
                    }
                },
                "snapshots": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "compare.PlannedOperation": {
            "type": "object",
            "properties": {
                "destructive": {
                    "type": "boolean"
                },
                "entity": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "phase": {
                    "type": "string"
                },
                "prompt": {
                    "type": "string"
                },
                "target": {
                    "type": "string"
                }
            }
        },
        "compare.SyncPlan": {
            "type": "object",
            "properties": {
                "operations": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/compare.PlannedOperation"
                    }
                },
                "source": {
                    "type": "string"
                },
                "targets": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "diff.Change": {
            "type": "object",
            "properties": {
                "attribute": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "values": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "diff.Report": {
            "type": "object",
            "properties": {
                "header": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "kind": {
                    "type": "string"
                },
                "rows": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/diff.Row"
                    }
                },
                "snapshots": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "title": {
                    "type": "string"
                }
            }
        },
        "diff.Row": {
            "type": "object",
            "properties": {
                "absent": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "changes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/diff.Change"
                    }
                },
                "entity": {
                    "type": "string"
                }
            }
        },
        "snapshot.Snapshot": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "roles": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "services": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "tables": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "envdiff API",
	Description:      "Compares console environments, dumps and database schemas, and plans their reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
