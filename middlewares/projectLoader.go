package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/sitebooks/backoffice/models"
	"gorm.io/gorm"
)

type projectReader struct {
	db *gorm.DB
}

func (r *projectReader) getProjects(ctx context.Context, ids []int) []*dataloader.Result[*models.Project] {
	var results []models.Project
	err := r.db.WithContext(ctx).Where("id IN ? AND removed = ?", ids, false).Find(&results).Error
	if err != nil {
		return handleError[*models.Project](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(p models.Project) int { return p.ID })
}

func GetProject(ctx context.Context, id int) (*models.Project, error) {
	loaders := For(ctx)
	return loaders.projectLoader.Load(ctx, id)()
}
