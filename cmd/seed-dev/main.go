package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/models"
	"github.com/sitebooks/backoffice/utils"
)

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func must[T any](v T, err error) T {
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	return v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func main() {
	businessID := flag.String("business-id", getenv("SEED_BUSINESS_ID", "dev-business"), "business id to seed")
	userName := flag.String("user", getenv("SEED_USER_NAME", "dev.admin"), "actor name recorded in history")
	printToken := flag.Bool("token", true, "print a bearer token for the seeded business (needs JWT_SECRET)")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, *userName)

	name := "Alpha Builders"
	existing := must(models.GetClients(ctx, &name))
	if len(existing) > 0 {
		fmt.Printf("business %s already seeded; skipping data\n", *businessID)
	} else {
		seed(ctx)
	}

	if *printToken {
		token, err := utils.JwtGenerate(1, *userName, *businessID, "owner", 30*24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token not generated: %v\n", err)
			return
		}
		fmt.Printf("Authorization: Bearer %s\n", token)
	}
}

func seed(ctx context.Context) {
	alpha := must(models.CreateClient(ctx, &models.NewClient{Name: "Alpha Builders", Company: "Alpha Builders Co."}))
	beta := must(models.CreateClient(ctx, &models.NewClient{Name: "Beta Homes"}))

	start := time.Now().UTC().AddDate(0, 0, -14)
	project := must(models.CreateProject(ctx, &models.NewProject{
		Name:      "Harbour Lofts",
		ClientId:  &alpha.ID,
		Location:  "Pier 4",
		Budget:    dec("250000"),
		StartDate: &start,
	}))

	mason := must(models.CreateContractorEmployee(ctx, &models.NewContractorEmployee{
		Name: "Ko Aung", Type: models.ContractorEmployeeTypeContractor, Trade: "masonry", DailyRate: dec("35000"),
	}))
	must(models.CreateContractorEmployee(ctx, &models.NewContractorEmployee{
		Name: "Ma Hla", Type: models.ContractorEmployeeTypeEmployee, Trade: "site office", DailyRate: dec("25000"),
	}))

	rebarQty, cementQty := dec("500"), dec("200")
	rebar := must(models.CreateInventoryItem(ctx, &models.NewInventoryItem{Name: "Rebar 12mm", Unit: "pcs", Cost: dec("12.5"), Quantity: &rebarQty}))
	cement := must(models.CreateInventoryItem(ctx, &models.NewInventoryItem{Name: "Cement", Unit: "bag", Cost: dec("8"), Quantity: &cementQty}))

	quote := must(models.CreateFinancialDocument(ctx, models.DocumentKindQuote, &models.NewFinancialDocument{
		WorkType:  models.WorkTypeServiceMaterial,
		Discount:  dec("5"),
		ClientIds: []int{alpha.ID, beta.ID},
		ProjectId: &project.ID,
		Items: []models.NewDocumentItem{
			{ItemName: "Foundation works", Quantity: dec("1"), Price: dec("42000"), Unit: "lot", PoNumber: "PO-100"},
			{ItemName: "Rebar supply", Quantity: dec("300"), Price: dec("14"), Unit: "pcs", PoNumber: "PO-100"},
			{ItemName: "Brick walls", Quantity: dec("120"), Price: dec("85"), Unit: "m2", PoNumber: "PO-200"},
		},
	}))
	must(models.ConvertQuoteToSupplierQuote(ctx, quote.ID, "PO-100"))
	invoice := must(models.ConvertQuoteToInvoice(ctx, quote.ID))
	must(models.RecordInvoicePayment(ctx, invoice.ID, dec("20000")))

	must(models.CreateSalaryRecord(ctx, &models.NewSalaryRecord{
		ProjectId: project.ID, ContractorEmployeeId: mason.ID, Days: dec("5"), WorkDate: time.Now().UTC(),
	}))
	must(models.CreateWorkProgress(ctx, &models.NewWorkProgress{
		ProjectId: project.ID, ContractorEmployeeId: mason.ID, QuoteId: quote.ID,
		QuoteItemId: quote.Items[2].ID, StartDate: start, Days: 21,
	}))

	outbound := must(models.CreateProjectOutbound(ctx, &models.NewStockMovement{
		ProjectId: project.ID,
		Items: []models.NewStockMovementItem{
			{InventoryItemId: rebar.ID, Quantity: dec("120")},
			{InventoryItemId: cement.ID, Quantity: dec("40")},
		},
	}))
	must(models.ConfirmOutbound(ctx, outbound.ID))

	fmt.Printf("seeded clients=%d,%d project=%d quote=%d invoice=%d outbound=%d\n",
		alpha.ID, beta.ID, project.ID, quote.ID, invoice.ID, outbound.ID)
}
