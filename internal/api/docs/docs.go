// Package docs registra o documento OpenAPI servido em /swagger/*any.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/transfers": {
            "get": {
                "tags": ["transfers"],
                "summary": "Lista transferências",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "productId", "in": "query"},
                    {"type": "string", "name": "projectId", "in": "query"},
                    {"type": "string", "name": "status", "in": "query", "enum": ["pending", "approved", "rejected", "completed"]},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Transfer"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["transfers"],
                "summary": "Solicita uma transferência",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "transfer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transfer.CreateTransferRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/transfer.CreateTransferResponse"}},
                    "400": {"description": "Validação ou estoque insuficiente", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Produto, projeto ou rack inexistente", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/transfers/{transferId}": {
            "get": {
                "tags": ["transfers"],
                "summary": "Busca uma transferência",
                "parameters": [{"type": "string", "name": "transferId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Transfer"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "patch": {
                "tags": ["transfers"],
                "summary": "Atualização unificada (decisão ou conclusão)",
                "parameters": [
                    {"type": "string", "name": "transferId", "in": "path", "required": true},
                    {"name": "update", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transfer.UpdateTransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Transfer"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/transfers/{transferId}/decision": {
            "post": {
                "tags": ["transfers"],
                "summary": "Aprova ou rejeita uma transferência pendente",
                "parameters": [
                    {"type": "string", "name": "transferId", "in": "path", "required": true},
                    {"name": "decision", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transfer.DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Transfer"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/transfers/{transferId}/complete": {
            "post": {
                "tags": ["transfers"],
                "summary": "Conclui uma transferência aprovada",
                "parameters": [
                    {"type": "string", "name": "transferId", "in": "path", "required": true},
                    {"name": "completion", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transfer.CompleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Transfer"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/holds": {
            "get": {
                "tags": ["holds"],
                "summary": "Resumo de estoque e reservas",
                "parameters": [
                    {"type": "string", "name": "projectId", "in": "query", "required": true},
                    {"type": "string", "name": "productId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.StockSummary"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "category": {"type": "string", "example": "INSUFFICIENT_STOCK"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "domain.Transfer": {
            "type": "object",
            "properties": {
                "transferId": {"type": "string", "example": "TRF-20260510120000-8F0C"},
                "productId": {"type": "string"},
                "fromProjectId": {"type": "string", "example": "EXTERNAL"},
                "toProjectId": {"type": "string"},
                "fromRack": {"type": "string"},
                "toRack": {"type": "string"},
                "transferType": {"type": "string", "enum": ["OUT", "IN"]},
                "quantity": {"type": "integer"},
                "approvedQuantity": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "approved", "rejected", "completed"]},
                "reason": {"type": "string"},
                "requestedBy": {"type": "string"},
                "requestedAt": {"type": "string", "format": "date-time"},
                "approvedBy": {"type": "string"},
                "approvedAt": {"type": "string", "format": "date-time"},
                "rejectedBy": {"type": "string"},
                "rejectedAt": {"type": "string", "format": "date-time"},
                "completedBy": {"type": "string"},
                "completedAt": {"type": "string", "format": "date-time"},
                "emailEvents": {"type": "object", "additionalProperties": {"type": "string", "format": "date-time"}}
            }
        },
        "domain.StockSummary": {
            "type": "object",
            "properties": {
                "projectId": {"type": "string"},
                "productId": {"type": "string"},
                "onHand": {"type": "integer"},
                "projectHeld": {"type": "integer"},
                "rackHeld": {"type": "integer"},
                "unassignedHold": {"type": "integer"},
                "available": {"type": "integer"},
                "rackHolds": {"type": "array", "items": {"type": "object"}}
            }
        },
        "transfer.CreateTransferRequest": {
            "type": "object",
            "required": ["productId", "fromProjectId", "toProjectId", "quantity"],
            "properties": {
                "productId": {"type": "string"},
                "fromProjectId": {"type": "string", "example": "EXTERNAL"},
                "toProjectId": {"type": "string"},
                "fromRack": {"type": "string"},
                "toRack": {"type": "string"},
                "transferType": {"type": "string", "enum": ["OUT", "IN"]},
                "quantity": {"type": "integer", "example": 10},
                "reason": {"type": "string"}
            }
        },
        "transfer.CreateTransferResponse": {
            "type": "object",
            "properties": {
                "transferId": {"type": "string"},
                "transfer": {"$ref": "#/definitions/domain.Transfer"}
            }
        },
        "transfer.DecisionRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected"]},
                "approvedQuantity": {"type": "number"}
            }
        },
        "transfer.CompleteRequest": {
            "type": "object",
            "properties": {
                "destinationRack": {"type": "string"},
                "sourceRack": {"type": "string"}
            }
        },
        "transfer.UpdateTransferRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["complete"]},
                "status": {"type": "string", "enum": ["approved", "rejected"]},
                "approvedQuantity": {"type": "number"},
                "destinationRack": {"type": "string"},
                "sourceRack": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo guarda as informações exportadas do documento.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "GoRack API",
	Description:      "Motor de transferências e reservas de estoque entre projetos e racks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
