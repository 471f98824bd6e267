package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitebooks/backoffice/models"
)

// crudRoutes wires the create/update/remove/get handlers shared by the plain master-data resources.
type crudRoutes[T any, In any] struct {
	create func(context.Context, *In) (*T, error)
	update func(context.Context, int, *In) (*T, error)
	remove func(context.Context, int) (*T, error)
	get    func(context.Context, int) (*T, error)
}

func (r crudRoutes[T, In]) register(h *Handler, g *gin.RouterGroup, name string) {
	g.POST("", func(c *gin.Context) {
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := r.create(c.Request.Context(), &input)
		if err != nil {
			h.respondError(c, "create"+name, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": result})
	})
	g.PUT("/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := r.update(c.Request.Context(), id, &input)
		if err != nil {
			h.respondError(c, "update"+name, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	})
	g.DELETE("/:id", func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		result, err := r.remove(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, "remove"+name, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	})
	if r.get != nil {
		g.GET("/:id", func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			result, err := r.get(c.Request.Context(), id)
			if err != nil {
				h.respondError(c, "get"+name, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": result})
		})
	}
}

func (h *Handler) registerMasterDataRoutes(api *gin.RouterGroup) {
	clients := api.Group("/clients")
	crudRoutes[models.Client, models.NewClient]{
		create: models.CreateClient, update: models.UpdateClient,
		remove: models.RemoveClient, get: models.GetClient,
	}.register(h, clients, "Client")
	clients.GET("", func(c *gin.Context) {
		results, err := models.GetClients(c.Request.Context(), optionalStringQuery(c, "name"))
		if err != nil {
			h.respondError(c, "listClients", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	})

	projects := api.Group("/projects")
	crudRoutes[models.Project, models.NewProject]{
		create: models.CreateProject, update: models.UpdateProject,
		remove: models.RemoveProject, get: models.GetProject,
	}.register(h, projects, "Project")
	projects.GET("", func(c *gin.Context) {
		var status *models.ProjectStatus
		if raw := c.Query("status"); raw != "" {
			s := models.ProjectStatus(raw)
			status = &s
		}
		results, err := models.GetProjects(c.Request.Context(), optionalStringQuery(c, "name"), status)
		if err != nil {
			h.respondError(c, "listProjects", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	})

	workers := api.Group("/contractor-employees")
	crudRoutes[models.ContractorEmployee, models.NewContractorEmployee]{
		create: models.CreateContractorEmployee, update: models.UpdateContractorEmployee,
		remove: models.RemoveContractorEmployee, get: models.GetContractorEmployee,
	}.register(h, workers, "ContractorEmployee")
	workers.GET("", func(c *gin.Context) {
		var employeeType *models.ContractorEmployeeType
		if raw := c.Query("type"); raw != "" {
			t := models.ContractorEmployeeType(raw)
			employeeType = &t
		}
		results, err := models.GetContractorEmployees(c.Request.Context(), employeeType)
		if err != nil {
			h.respondError(c, "listContractorEmployees", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	})

	salaries := api.Group("/salary-records")
	crudRoutes[models.SalaryRecord, models.NewSalaryRecord]{
		create: models.CreateSalaryRecord, update: models.UpdateSalaryRecord,
		remove: models.RemoveSalaryRecord,
	}.register(h, salaries, "SalaryRecord")
	salaries.GET("", func(c *gin.Context) {
		projectId, ok := optionalIntQuery(c, "project_id")
		if !ok {
			return
		}
		workerId, ok := optionalIntQuery(c, "contractor_employee_id")
		if !ok {
			return
		}
		results, err := models.GetSalaryRecords(c.Request.Context(), projectId, workerId)
		if err != nil {
			h.respondError(c, "listSalaryRecords", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	})

	items := api.Group("/inventory-items")
	crudRoutes[models.InventoryItem, models.NewInventoryItem]{
		create: models.CreateInventoryItem, update: models.UpdateInventoryItem,
		remove: models.RemoveInventoryItem, get: models.GetInventoryItem,
	}.register(h, items, "InventoryItem")
	items.GET("", func(c *gin.Context) {
		results, err := models.GetInventoryItems(c.Request.Context(), optionalStringQuery(c, "name"))
		if err != nil {
			h.respondError(c, "listInventoryItems", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	})
}
