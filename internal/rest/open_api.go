package rest

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/ghodss/yaml"
	"github.com/go-chi/chi/v5"
)

// NewOpenAPI3 instantiates the OpenAPI specification for this service.
func NewOpenAPI3() openapi3.T {
	swagger := openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "Tasks API",
			Description: "REST API for managing per-user tasks, categories and tags.",
			Version:     "1.0.0",
			Contact: &openapi3.Contact{
				URL: "https://github.com/taskhive/tasks-api",
			},
		},
		Servers: openapi3.Servers{
			&openapi3.Server{
				Description: "Local development",
				URL:         "http://0.0.0.0:9234/api",
			},
		},
	}

	swagger.Components = &openapi3.Components{
		SecuritySchemes: openapi3.SecuritySchemes{
			"bearerAuth": &openapi3.SecuritySchemeRef{
				Value: openapi3.NewSecurityScheme().
					WithType("http").
					WithScheme("bearer").
					WithBearerFormat("JWT"),
			},
		},
		Schemas: openapi3.Schemas{
			"Tag": openapi3.NewSchemaRef("",
				openapi3.NewObjectSchema().
					WithProperty("name", openapi3.NewStringSchema().WithMaxLength(50))),
			"Task": openapi3.NewSchemaRef("",
				openapi3.NewObjectSchema().
					WithProperty("id", openapi3.NewUUIDSchema()).
					WithProperty("title", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(200)).
					WithProperty("description", openapi3.NewStringSchema().WithMaxLength(1000)).
					WithProperty("completed", openapi3.NewBoolSchema()).
					WithProperty("priority", openapi3.NewStringSchema().WithEnum("low", "medium", "high")).
					WithProperty("dueDate", openapi3.NewDateTimeSchema()).
					WithProperty("progress", openapi3.NewIntegerSchema().WithMin(0).WithMax(100)).
					WithProperty("categoryId", openapi3.NewUUIDSchema().WithNullable()).
					WithProperty("categoryName", openapi3.NewStringSchema()).
					WithProperty("categoryColor", openapi3.NewStringSchema()).
					WithProperty("assignedTo", openapi3.NewUUIDSchema().WithNullable()).
					WithProperty("assigneeName", openapi3.NewStringSchema()).
					WithPropertyRef("tags", &openapi3.SchemaRef{
						Value: openapi3.NewArraySchema().
							WithItems(openapi3.NewObjectSchema().
								WithProperty("name", openapi3.NewStringSchema().WithMaxLength(50))),
					}).
					WithProperty("createdAt", openapi3.NewDateTimeSchema()).
					WithProperty("updatedAt", openapi3.NewDateTimeSchema())),
			"Category": openapi3.NewSchemaRef("",
				openapi3.NewObjectSchema().
					WithProperty("id", openapi3.NewUUIDSchema()).
					WithProperty("name", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(100)).
					WithProperty("description", openapi3.NewStringSchema()).
					WithProperty("color", openapi3.NewStringSchema().WithPattern(`^#[0-9a-fA-F]{6}$`)).
					WithProperty("createdAt", openapi3.NewDateTimeSchema()).
					WithProperty("updatedAt", openapi3.NewDateTimeSchema())),
			"User": openapi3.NewSchemaRef("",
				openapi3.NewObjectSchema().
					WithProperty("id", openapi3.NewUUIDSchema()).
					WithProperty("username", openapi3.NewStringSchema()).
					WithProperty("email", openapi3.NewStringSchema()).
					WithProperty("firstName", openapi3.NewStringSchema()).
					WithProperty("lastName", openapi3.NewStringSchema())),
		},
	}

	newOp := func(id, summary, schema string, status int) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.OperationID = id
		op.Summary = summary
		op.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate("bearerAuth"))
		op.AddResponse(status, openapi3.NewResponse().
			WithDescription("Response envelope").
			WithContent(openapi3.NewContentWithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/" + schema})))

		return op
	}

	newPublicOp := func(id, summary, schema string, status int) *openapi3.Operation {
		op := newOp(id, summary, schema, status)
		op.Security = nil

		return op
	}

	swagger.Paths = openapi3.Paths{
		"/auth/register": &openapi3.PathItem{
			Post: newPublicOp("Register", "Creates an account and signs it in", "User", http.StatusCreated),
		},
		"/auth/login": &openapi3.PathItem{
			Post: newPublicOp("Login", "Verifies credentials and issues a token pair", "User", http.StatusOK),
		},
		"/auth/refresh": &openapi3.PathItem{
			Post: newPublicOp("Refresh", "Rotates the refresh token", "User", http.StatusOK),
		},
		"/auth/verify": &openapi3.PathItem{
			Post: newOp("Verify", "Validates the presented access token", "User", http.StatusOK),
		},
		"/users": &openapi3.PathItem{
			Get: newOp("ListUsers", "Lists active users", "User", http.StatusOK),
		},
		"/users/profile": &openapi3.PathItem{
			Get:    newOp("ReadProfile", "Returns the authenticated user's profile", "User", http.StatusOK),
			Delete: newOp("DeactivateProfile", "Deactivates the authenticated user's account", "User", http.StatusOK),
		},
		"/tasks": &openapi3.PathItem{
			Get:  newOp("ListTasks", "Lists tasks with filtering, sorting and pagination", "Task", http.StatusOK),
			Post: newOp("CreateTask", "Creates a task with its tag set", "Task", http.StatusCreated),
		},
		"/tasks/bulk": &openapi3.PathItem{
			Put: newOp("BulkUpdateTasks", "Applies up to 50 partial updates atomically", "Task", http.StatusOK),
		},
		"/tasks/{id}": &openapi3.PathItem{
			Get:    newOp("ReadTask", "Returns one owned task", "Task", http.StatusOK),
			Put:    newOp("UpdateTask", "Applies a partial update to a task", "Task", http.StatusOK),
			Delete: newOp("DeleteTask", "Deletes a task and its tags", "Task", http.StatusOK),
		},
		"/tasks/{id}/toggle": &openapi3.PathItem{
			Patch: newOp("ToggleTask", "Flips the completion flag", "Task", http.StatusOK),
		},
		"/categories": &openapi3.PathItem{
			Get:  newOp("ListCategories", "Lists the categories of the authenticated user", "Category", http.StatusOK),
			Post: newOp("CreateCategory", "Creates a category", "Category", http.StatusCreated),
		},
		"/categories/{id}": &openapi3.PathItem{
			Put:    newOp("UpdateCategory", "Applies a partial update to a category", "Category", http.StatusOK),
			Delete: newOp("DeleteCategory", "Deletes a category with no referencing tasks", "Category", http.StatusOK),
		},
	}

	return swagger
}

// RegisterOpenAPI connects the OpenAPI document endpoints to the router.
func RegisterOpenAPI(r chi.Router) {
	swagger := NewOpenAPI3()

	r.Get("/openapi3.json", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, &swagger, http.StatusOK)
	})

	r.Get("/openapi3.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := yaml.Marshal(&swagger)
		if err != nil {
			http.Error(w, "couldn't marshal yaml", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(data)
	})
}
