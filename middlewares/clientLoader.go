package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/sitebooks/backoffice/models"
	"gorm.io/gorm"
)

type clientReader struct {
	db *gorm.DB
}

func (r *clientReader) getClients(ctx context.Context, ids []int) []*dataloader.Result[*models.Client] {
	var results []models.Client
	err := r.db.WithContext(ctx).Where("id IN ? AND removed = ?", ids, false).Find(&results).Error
	if err != nil {
		return handleError[*models.Client](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(c models.Client) int { return c.ID })
}

func GetClient(ctx context.Context, id int) (*models.Client, error) {
	loaders := For(ctx)
	return loaders.clientLoader.Load(ctx, id)()
}

func GetClients(ctx context.Context, ids []int) ([]*models.Client, []error) {
	loaders := For(ctx)
	return loaders.clientLoader.LoadMany(ctx, ids)()
}

type documentClientReader struct {
	db *gorm.DB
}

// getDocumentClients resolves the clients of many documents with two queries.
func (r *documentClientReader) getDocumentClients(ctx context.Context, documentIds []int) []*dataloader.Result[[]*models.Client] {
	clientIdsByDocument, err := models.GetDocumentClientIds(ctx, documentIds)
	if err != nil {
		return handleError[[]*models.Client](len(documentIds), err)
	}
	var clientIds []int
	for _, ids := range clientIdsByDocument {
		clientIds = append(clientIds, ids...)
	}
	clients, err := models.GetClientsByIds(ctx, clientIds)
	if err != nil {
		return handleError[[]*models.Client](len(documentIds), err)
	}
	byId := make(map[int]*models.Client, len(clients))
	for _, c := range clients {
		byId[c.ID] = c
	}

	loaderResults := make([]*dataloader.Result[[]*models.Client], 0, len(documentIds))
	for _, docId := range documentIds {
		docClients := []*models.Client{}
		for _, cid := range clientIdsByDocument[docId] {
			if c, ok := byId[cid]; ok {
				docClients = append(docClients, c)
			}
		}
		loaderResults = append(loaderResults, &dataloader.Result[[]*models.Client]{Data: docClients})
	}
	return loaderResults
}

// GetDocumentClients batches client lookups for document listings.
func GetDocumentClients(ctx context.Context, documentId int) ([]*models.Client, error) {
	loaders := For(ctx)
	return loaders.documentClientLoader.Load(ctx, documentId)()
}

// GetDocumentClientsMany resolves the clients of every document in one batch, in the order of ids.
func GetDocumentClientsMany(ctx context.Context, documentIds []int) ([][]*models.Client, []error) {
	loaders := For(ctx)
	return loaders.documentClientLoader.LoadMany(ctx, documentIds)()
}
