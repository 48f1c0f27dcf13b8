// Package docs contiene el documento Swagger 2.0 servido en /swagger.
// Sigue el formato de swag init -g cmd/api/main.go y se reemplaza al regenerarlo.
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
        "/appointments": {
            "get": {
                "description": "Lista citas en orden de alta. Un paciente solo ve las propias (patient_id se ignora).",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Listar citas",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Busca en título, descripción, tratamiento o nombre del paciente",
                        "name": "q",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "pending, completed, cancelled o all",
                        "name": "status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "all, today, week o month",
                        "name": "window",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Solo admin",
                        "name": "patient_id",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/appointments.AppointmentResponse"
                            }
                        }
                    },
                    "400": {
                        "description": "window inválido",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "post": {
                "description": "Crea una cita. Solo admin. status por defecto ` + "`" + `pending` + "`" + `; cost no puede ser negativo. El paciente no se valida contra el listado.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Agendar cita",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Solo en modo dev, ID de usuario",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Bearer token si JWT_SECRET está configurado",
                        "name": "Authorization",
                        "in": "header"
                    },
                    {
                        "description": "Datos de la cita",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/appointments.createAppointmentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/appointments.AppointmentResponse"
                        }
                    },
                    "400": {
                        "description": "invalid json / fecha inválida / reglas de negocio",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/appointments/stats": {
            "get": {
                "description": "Total y cantidad por estado, más la suma de los costos definidos.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Contadores de citas",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dashboard.appointmentStatsResponse"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/appointments/{appointmentID}": {
            "get": {
                "description": "Un paciente solo ve sus propias citas; una ajena responde 404.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Obtener cita",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/appointments.AppointmentResponse"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "appointment not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "patch": {
                "description": "PATCH parcial. Solo admin. cost, treatment y next_appointment_date aceptan null para limpiar.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Editar cita",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Campos a cambiar",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/appointments.updateAppointmentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/appointments.AppointmentResponse"
                        }
                    },
                    "400": {
                        "description": "invalid json / reglas de negocio",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "appointment not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "appointments"
                ],
                "summary": "Eliminar cita",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "appointment not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/appointments/{appointmentID}/files": {
            "post": {
                "description": "Sube una imagen, PDF o documento Word (campo multipart ` + "`" + `file` + "`" + `). El contenido queda embebido en la cita.",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Adjuntar archivo",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "file",
                        "description": "Archivo",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/appointments.FileResponse"
                        }
                    },
                    "400": {
                        "description": "file requerido",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "413": {
                        "description": "file too large",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "415": {
                        "description": "unsupported file type",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/appointments/{appointmentID}/files/{fileID}": {
            "get": {
                "description": "Devuelve el contenido original del adjunto. Imágenes y PDF van inline; el resto como attachment.",
                "produces": [
                    "application/octet-stream"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Descargar adjunto",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "ID del adjunto",
                        "name": "fileID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "file not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Quitar adjunto",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "ID del adjunto",
                        "name": "fileID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/appointments.AppointmentResponse"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "file not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/appointments/{appointmentID}/status": {
            "post": {
                "description": "Acción rápida completar/cancelar. Cualquier transición está permitida.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "appointments"
                ],
                "summary": "Cambiar estado",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID de la cita",
                        "name": "appointmentID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Nuevo estado",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/appointments.statusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/appointments.AppointmentResponse"
                        }
                    },
                    "400": {
                        "description": "invalid status",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "appointment not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Busca el usuario por email exacto. La contraseña no se valida. Si hay JWT_SECRET devuelve un token Bearer.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Iniciar sesión",
                "parameters": [
                    {
                        "description": "Credenciales",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/users.loginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/users.loginResponse"
                        }
                    },
                    "400": {
                        "description": "invalid json",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Cerrar sesión",
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                }
            }
        },
        "/auth/me": {
            "get": {
                "description": "Devuelve el usuario resuelto del token, del header de debug o de la sesión persistida (estos dos solo sin JWT_SECRET).",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Usuario actual",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/users.User"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/calendar": {
            "get": {
                "description": "Un día por entrada con sus citas. month en formato YYYY-MM (default: mes actual). Un paciente solo ve las propias.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Calendario mensual",
                "parameters": [
                    {
                        "type": "string",
                        "description": "YYYY-MM",
                        "name": "month",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/dashboard.CalendarDay"
                            }
                        }
                    },
                    "400": {
                        "description": "month must be YYYY-MM",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/dashboard/admin": {
            "get": {
                "description": "KPIs, contadores por estado, top 5 pacientes por revenue, próximas 10 citas y revenue de los últimos 6 meses.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Tablero de administración",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dashboard.adminDashboard"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/dashboard/patient": {
            "get": {
                "description": "Citas propias, próximas, historial de tratamientos completados y total gastado. Un admin puede pasar patient_id.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Tablero del paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Solo admin",
                        "name": "patient_id",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dashboard.patientDashboard"
                        }
                    },
                    "400": {
                        "description": "patient_id required",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "description": "Indica si las colecciones siguen en carga inicial y cuántos clientes WebSocket hay conectados.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Estado del servicio",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/router.healthResponse"
                        }
                    }
                }
            }
        },
        "/patients": {
            "get": {
                "description": "Lista los pacientes en orden de alta. ` + "`" + `q` + "`" + ` filtra por nombre/email o teléfono.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Listar pacientes",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Texto de búsqueda",
                        "name": "q",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/patients.PatientResponse"
                            }
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "post": {
                "description": "Crea una ficha de paciente. Solo admin. Requiere name, email, phone, address y emergency_contact.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Registrar paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Solo en modo dev, ID de usuario",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "description": "Datos del paciente; date_of_birth en formato YYYY-MM-DD",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/patients.createPatientRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/patients.PatientResponse"
                        }
                    },
                    "400": {
                        "description": "invalid json / campos requeridos",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/patients/stats": {
            "get": {
                "description": "Totales de pacientes, altas del mes, edad promedio y detalle por paciente.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Resumen de pacientes",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dashboard.PatientSummary"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/patients/{patientID}": {
            "get": {
                "description": "Admin ve cualquier ficha; un paciente solo la propia.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Obtener paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID del paciente",
                        "name": "patientID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/patients.PatientResponse"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "patient not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "patch": {
                "description": "PATCH parcial. Solo admin. date_of_birth (YYYY-MM-DD) admite null para limpiar.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Editar paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID del paciente",
                        "name": "patientID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Campos a cambiar",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/patients.updatePatientRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/patients.PatientResponse"
                        }
                    },
                    "400": {
                        "description": "invalid json / campos requeridos",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "patient not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            },
            "delete": {
                "description": "Sus citas no se borran.",
                "tags": [
                    "patients"
                ],
                "summary": "Eliminar paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID del paciente",
                        "name": "patientID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "patient not found",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrade a WebSocket. Cada mensaje es un cambio {topic, op, id, at}. El topic session (logins y logouts) solo llega a admins.",
                "tags": [
                    "realtime"
                ],
                "summary": "Cambios en tiempo real",
                "parameters": [
                    {
                        "type": "string",
                        "description": "patients,appointments,session (default: todos los permitidos)",
                        "name": "topics",
                        "in": "query"
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching Protocols",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "appointments.AppointmentResponse": {
            "type": "object",
            "properties": {
                "appointment_date_time": {
                    "type": "string"
                },
                "comment": {
                    "type": "string"
                },
                "cost": {
                    "type": "number"
                },
                "created_at": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "files": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/appointments.FileResponse"
                    }
                },
                "id": {
                    "type": "string"
                },
                "next_appointment_date": {
                    "type": "string"
                },
                "patient_id": {
                    "type": "string"
                },
                "status": {
                    "$ref": "#/definitions/appointments.Status"
                },
                "title": {
                    "type": "string"
                },
                "treatment": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "appointments.FileResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "size": {
                    "type": "integer"
                },
                "size_label": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "uploaded_at": {
                    "type": "string"
                }
            }
        },
        "appointments.Status": {
            "type": "string",
            "enum": [
                "pending",
                "completed",
                "cancelled"
            ],
            "x-enum-varnames": [
                "StatusPending",
                "StatusCompleted",
                "StatusCancelled"
            ]
        },
        "appointments.createAppointmentRequest": {
            "type": "object",
            "properties": {
                "appointment_date_time": {
                    "type": "string"
                },
                "comment": {
                    "type": "string"
                },
                "cost": {
                    "type": "number"
                },
                "description": {
                    "type": "string"
                },
                "next_appointment_date": {
                    "type": "string"
                },
                "patient_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "completed",
                        "cancelled"
                    ]
                },
                "title": {
                    "type": "string"
                },
                "treatment": {
                    "type": "string"
                }
            }
        },
        "appointments.statusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "completed",
                        "cancelled"
                    ]
                }
            }
        },
        "appointments.updateAppointmentRequest": {
            "type": "object",
            "properties": {
                "appointment_date_time": {
                    "type": "string"
                },
                "comment": {
                    "type": "string"
                },
                "cost": {
                    "type": "number",
                    "x-nullable": true
                },
                "description": {
                    "type": "string"
                },
                "next_appointment_date": {
                    "type": "string",
                    "x-nullable": true
                },
                "patient_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "completed",
                        "cancelled"
                    ]
                },
                "title": {
                    "type": "string"
                },
                "treatment": {
                    "type": "string",
                    "x-nullable": true
                }
            }
        },
        "auth.Role": {
            "type": "string",
            "enum": [
                "admin",
                "patient"
            ],
            "x-enum-varnames": [
                "RoleAdmin",
                "RolePatient"
            ]
        },
        "dashboard.CalendarDay": {
            "type": "object",
            "properties": {
                "appointments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dashboard.CalendarEntry"
                    }
                },
                "date": {
                    "type": "string"
                }
            }
        },
        "dashboard.CalendarEntry": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "patient_name": {
                    "type": "string"
                },
                "status": {
                    "$ref": "#/definitions/appointments.Status"
                },
                "time": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                }
            }
        },
        "dashboard.KPIData": {
            "type": "object",
            "properties": {
                "completed_treatments": {
                    "type": "integer"
                },
                "pending_treatments": {
                    "type": "integer"
                },
                "total_appointments": {
                    "type": "integer"
                },
                "total_patients": {
                    "type": "integer"
                },
                "total_revenue": {
                    "type": "number"
                }
            }
        },
        "dashboard.MonthRevenue": {
            "type": "object",
            "properties": {
                "appointments": {
                    "type": "integer"
                },
                "month": {
                    "type": "string"
                },
                "revenue": {
                    "type": "number"
                }
            }
        },
        "dashboard.PatientStat": {
            "type": "object",
            "properties": {
                "appointment_count": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "patient_id": {
                    "type": "string"
                },
                "total_revenue": {
                    "type": "number"
                }
            }
        },
        "dashboard.PatientSummary": {
            "type": "object",
            "properties": {
                "average_age": {
                    "type": "integer"
                },
                "new_this_month": {
                    "type": "integer"
                },
                "patients": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dashboard.PatientStat"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "with_email": {
                    "type": "integer"
                },
                "with_phone": {
                    "type": "integer"
                }
            }
        },
        "dashboard.RevenueSummary": {
            "type": "object",
            "properties": {
                "avg_monthly_revenue": {
                    "type": "number"
                },
                "highest_month": {
                    "type": "number"
                },
                "months": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dashboard.MonthRevenue"
                    }
                },
                "total_appointments": {
                    "type": "integer"
                },
                "total_revenue": {
                    "type": "number"
                }
            }
        },
        "dashboard.StatusCounts": {
            "type": "object",
            "properties": {
                "cancelled": {
                    "type": "integer"
                },
                "completed": {
                    "type": "integer"
                },
                "pending": {
                    "type": "integer"
                },
                "total": {
                    "type": "integer"
                }
            }
        },
        "dashboard.adminDashboard": {
            "type": "object",
            "properties": {
                "counts": {
                    "$ref": "#/definitions/dashboard.StatusCounts"
                },
                "kpis": {
                    "$ref": "#/definitions/dashboard.KPIData"
                },
                "revenue": {
                    "$ref": "#/definitions/dashboard.RevenueSummary"
                },
                "top_patients": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dashboard.PatientStat"
                    }
                },
                "upcoming": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dashboard.upcomingEntry"
                    }
                }
            }
        },
        "dashboard.appointmentStatsResponse": {
            "type": "object",
            "properties": {
                "cancelled": {
                    "type": "integer"
                },
                "completed": {
                    "type": "integer"
                },
                "pending": {
                    "type": "integer"
                },
                "revenue": {
                    "type": "number"
                },
                "total": {
                    "type": "integer"
                }
            }
        },
        "dashboard.patientDashboard": {
            "type": "object",
            "properties": {
                "appointments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/appointments.AppointmentResponse"
                    }
                },
                "counts": {
                    "$ref": "#/definitions/dashboard.StatusCounts"
                },
                "history": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/appointments.AppointmentResponse"
                    }
                },
                "patient": {
                    "$ref": "#/definitions/patients.PatientResponse"
                },
                "total_spent": {
                    "type": "number"
                },
                "upcoming": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/appointments.AppointmentResponse"
                    }
                }
            }
        },
        "dashboard.upcomingEntry": {
            "type": "object",
            "properties": {
                "appointment_date_time": {
                    "type": "string"
                },
                "comment": {
                    "type": "string"
                },
                "cost": {
                    "type": "number"
                },
                "created_at": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "files": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/appointments.FileResponse"
                    }
                },
                "id": {
                    "type": "string"
                },
                "next_appointment_date": {
                    "type": "string"
                },
                "patient_id": {
                    "type": "string"
                },
                "patient_name": {
                    "type": "string"
                },
                "status": {
                    "$ref": "#/definitions/appointments.Status"
                },
                "title": {
                    "type": "string"
                },
                "treatment": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "patients.PatientResponse": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "date_of_birth": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "emergency_contact": {
                    "type": "string"
                },
                "health_info": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "patients.createPatientRequest": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "date_of_birth": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "emergency_contact": {
                    "type": "string"
                },
                "health_info": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                }
            }
        },
        "patients.updatePatientRequest": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "emergency_contact": {
                    "type": "string"
                },
                "health_info": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                }
            }
        },
        "router.healthResponse": {
            "type": "object",
            "properties": {
                "appointments_loading": {
                    "type": "boolean"
                },
                "patients_loading": {
                    "type": "boolean"
                },
                "status": {
                    "type": "string"
                },
                "websocket_clients": {
                    "type": "integer"
                }
            }
        },
        "users.User": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "patient_id": {
                    "type": "string"
                },
                "role": {
                    "$ref": "#/definitions/auth.Role"
                }
            }
        },
        "users.loginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "users.loginResponse": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                },
                "user": {
                    "$ref": "#/definitions/users.User"
                }
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
	Title:            "Dental Clinic Admin API",
	Description:      "API de administración de la clínica: pacientes, citas, adjuntos y tableros.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
