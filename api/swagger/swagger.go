package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Farnsworth Workshift API",
        "description": "Workshift scheduling and hour accounting for the house",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Token issuance"},
        {"name": "Semesters", "description": "Semester lifecycle"},
        {"name": "Pools", "description": "Workshift pool administration"},
        {"name": "WorkshiftTypes", "description": "Chore catalog"},
        {"name": "Profiles", "description": "Per-semester member profiles and preferences"},
        {"name": "Shifts", "description": "Recurring shift definitions"},
        {"name": "Assignments", "description": "Bulk assignment runs"},
        {"name": "Instances", "description": "Dated shift occurrences and their state machine"},
        {"name": "Standings", "description": "Hour standings, fines and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Issue an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "parameters": [
                    {"name": "season", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "current", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Semesters"],
                "summary": "Start a new semester",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartSemesterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Semester already exists"}
                }
            }
        },
        "/semesters/current": {
            "get": {
                "tags": ["Semesters"],
                "summary": "Resolve the current semester",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No current semester"}
                }
            }
        },
        "/pools": {
            "get": {
                "tags": ["Pools"],
                "summary": "List pools of a semester",
                "parameters": [
                    {"name": "semesterId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Pools"],
                "summary": "Create a workshift pool",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePoolRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts": {
            "get": {
                "tags": ["Shifts"],
                "summary": "List shifts",
                "parameters": [
                    {"name": "semesterId", "in": "query", "type": "string"},
                    {"name": "poolId", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "day", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Shifts"],
                "summary": "Create a recurring shift",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShiftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instances/{id}/sign-in": {
            "post": {
                "tags": ["Instances"],
                "summary": "Sign in to an open unfilled instance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Signed in"},
                    "409": {"description": "Instance closed or filled"}
                }
            }
        },
        "/instances/{id}/verify": {
            "post": {
                "tags": ["Instances"],
                "summary": "Verify a completed instance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Verified"},
                    "403": {"description": "Verification mode forbids this actor"}
                }
            }
        },
        "/standings": {
            "get": {
                "tags": ["Standings"],
                "summary": "List hour standings for a semester",
                "parameters": [
                    {"name": "semesterId", "in": "query", "required": true, "type": "string"},
                    {"name": "poolId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/standings/fines": {
            "get": {
                "tags": ["Standings"],
                "summary": "List fines for one frozen snapshot slot",
                "parameters": [
                    {"name": "semesterId", "in": "query", "required": true, "type": "string"},
                    {"name": "poolId", "in": "query", "required": true, "type": "string"},
                    {"name": "slot", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "StartSemesterRequest": {
            "type": "object",
            "required": ["season", "year"],
            "properties": {
                "season": {"type": "string", "enum": ["SPRING", "SUMMER", "FALL"]},
                "year": {"type": "integer"},
                "rate": {"type": "number"},
                "policy_url": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"}
            }
        },
        "CreatePoolRequest": {
            "type": "object",
            "required": ["semester_id", "title"],
            "properties": {
                "semester_id": {"type": "string"},
                "title": {"type": "string"},
                "hours": {"type": "number"},
                "weeks_per_period": {"type": "integer"},
                "sign_out_cutoff_hours": {"type": "integer"},
                "verify_cutoff_hours": {"type": "integer"},
                "self_verify": {"type": "boolean"},
                "any_blown": {"type": "boolean"},
                "manager_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateShiftRequest": {
            "type": "object",
            "required": ["type_id", "pool_id", "count", "verify"],
            "properties": {
                "type_id": {"type": "string"},
                "pool_id": {"type": "string"},
                "title": {"type": "string"},
                "day": {"type": "integer"},
                "week_long": {"type": "boolean"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "hours": {"type": "number"},
                "count": {"type": "integer"},
                "verify": {"type": "string", "enum": ["SELF", "AUTO", "OTHER_MEMBER", "ANY_MANAGER", "POOL_MANAGER", "WORKSHIFT_MANAGER"]},
                "addendum": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
