package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const projectReportSheet = "Project Report"

type ExcelExporter interface {
	GetCellValues() []interface{}
}

func (r ProjectReportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ProjectName,
		string(r.Status),
		r.SalaryRecordCount,
		r.EmployeeCount,
		r.SalaryTotal.InexactFloat64(),
		r.InvoicedTotal.InexactFloat64(),
		r.Net.InexactFloat64(),
	}
}

func (r MemberInvoiceSummaryRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ClientName,
		r.InvoiceCount,
		r.ProjectCount,
		r.Total.InexactFloat64(),
		r.Credit.InexactFloat64(),
		r.Outstanding.InexactFloat64(),
	}
}

// newExcelFile writes headings on row 1 and one row per exporter below them.
func newExcelFile(sheetName string, data []ExcelExporter, headings ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(headings))
	for _, h := range headings {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, d := range data {
		values := d.GetCellValues()
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportProjectReportExcel renders the report with a trailing totals row.
func ExportProjectReportExcel(report *ProjectReport) (*excelize.File, error) {
	data := make([]ExcelExporter, 0, len(report.Projects))
	for _, row := range report.Projects {
		data = append(data, *row)
	}
	f, err := newExcelFile(projectReportSheet, data,
		"Project", "Status", "Salary Records", "Employees", "Salary Total", "Invoiced Total", "Net",
	)
	if err != nil {
		return nil, err
	}
	totals := []interface{}{
		"Total", "", "", report.DistinctEmployees,
		report.TotalSalary.InexactFloat64(),
		report.TotalInvoiced.InexactFloat64(),
		report.Net.InexactFloat64(),
	}
	if err := f.SetSheetRow(projectReportSheet, fmt.Sprintf("A%d", len(data)+2), &totals); err != nil {
		return nil, err
	}
	return f, nil
}

// ExportMemberInvoiceSummaryExcel renders one row per client.
func ExportMemberInvoiceSummaryExcel(summary *MemberInvoiceSummary) (*excelize.File, error) {
	data := make([]ExcelExporter, 0, len(summary.Members))
	for _, row := range summary.Members {
		data = append(data, *row)
	}
	return newExcelFile("Member Invoices", data,
		"Client", "Invoices", "Projects", "Total", "Credit", "Outstanding",
	)
}

// WriteExcel streams f to w and closes it.
func WriteExcel(w io.Writer, f *excelize.File) error {
	defer f.Close()
	_, err := f.WriteTo(w)
	return err
}
