// Package docs is generated by swag from the router annotations; regenerate
// with `swag init -g cmd/bench/main.go -o internal/api/docs`.
package docs

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
    "paths": {
        "/compare": {
            "get": {
                "description": "Speedup per configuration key and the geometric mean over keys OK on both sides",
                "produces": ["application/json"],
                "tags": ["compare"],
                "summary": "Compare two engines",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "run", "in": "query", "required": true},
                    {"type": "string", "description": "Baseline engine", "name": "baseline", "in": "query", "required": true},
                    {"type": "string", "description": "Candidate engine", "name": "candidate", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/report.Comparison"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/runs": {
            "get": {
                "description": "Finished benchmark runs in the results directory, newest first",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/results.RunInfo"}}}
                }
            }
        },
        "/runs/{id}/tables/{engine}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Merged table of one engine",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Engine name", "name": "engine", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/report.Table"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/runs/{id}/trials": {
            "get": {
                "description": "One record per trial, including failed and timed out trials",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List trials of a run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/results.TrialRecord"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "report.Comparison": {
            "type": "object",
            "properties": {
                "baseline": {"type": "string"},
                "candidate": {"type": "string"},
                "metrics": {"type": "array", "items": {"type": "string"}},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/report.ComparisonRow"}},
                "not_comparable": {"type": "array", "items": {"$ref": "#/definitions/report.OneSided"}},
                "geomean_speedup": {"type": "number"},
                "geomean_keys": {"type": "array", "items": {"$ref": "#/definitions/spec.Key"}}
            }
        },
        "report.ComparisonRow": {
            "type": "object",
            "properties": {
                "workload": {"type": "string"},
                "threads": {"type": "integer"},
                "baseline_best_sec": {"type": "number"},
                "candidate_best_sec": {"type": "number"},
                "speedup": {"type": "number"},
                "metrics": {"type": "array", "items": {"$ref": "#/definitions/report.MetricDelta"}}
            }
        },
        "report.MetricDelta": {
            "type": "object",
            "properties": {
                "metric": {"type": "string"},
                "baseline": {"type": "number"},
                "candidate": {"type": "number"},
                "ratio": {"type": "number"},
                "delta_pct": {"type": "number"},
                "verdict": {"type": "string"}
            }
        },
        "report.OneSided": {
            "type": "object",
            "properties": {
                "workload": {"type": "string"},
                "threads": {"type": "integer"},
                "baseline": {"type": "string"},
                "candidate": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "report.Row": {
            "type": "object",
            "properties": {
                "workload": {"type": "string"},
                "threads": {"type": "integer"},
                "status": {"type": "string"},
                "repetitions": {"type": "integer"},
                "ok": {"type": "integer"},
                "best_sec": {"type": "number"},
                "mean_sec": {"type": "number"},
                "metrics": {"type": "object", "additionalProperties": {"type": "number"}}
            }
        },
        "report.Table": {
            "type": "object",
            "properties": {
                "engine": {"type": "string"},
                "metrics": {"type": "array", "items": {"type": "string"}},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/report.Row"}}
            }
        },
        "results.RunInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "started_at": {"type": "string"},
                "ended_at": {"type": "string"},
                "engines": {"type": "array", "items": {"type": "string"}},
                "failed_configurations": {"type": "integer"}
            }
        },
        "results.TrialRecord": {
            "type": "object",
            "additionalProperties": {"type": "string"}
        },
        "spec.Key": {
            "type": "object",
            "properties": {
                "workload": {"type": "string"},
                "threads": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Engine Bench Results API",
	Description:      "Read-only browser over benchmark runs: trials, merged tables and engine comparisons",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
