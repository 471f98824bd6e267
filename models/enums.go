package models

import (
	"encoding/json"
	"errors"
)

type DocumentKind string

const (
	DocumentKindQuote         DocumentKind = "QUOTE"
	DocumentKindSupplierQuote DocumentKind = "SUPPLIER_QUOTE"
	DocumentKindInvoice       DocumentKind = "INVOICE"
	DocumentKindShipQuote     DocumentKind = "SHIP_QUOTE"
)

func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindQuote, DocumentKindSupplierQuote, DocumentKindInvoice, DocumentKindShipQuote:
		return true
	}
	return false
}

// convert input to enum type
func (k *DocumentKind) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("document kind must be string")
	}
	if !DocumentKind(str).IsValid() {
		return errors.New("invalid document kind")
	}
	*k = DocumentKind(str)
	return nil
}

type WorkType string

const (
	WorkTypeLabor           WorkType = "labor"
	WorkTypeService         WorkType = "service"
	WorkTypeMaterial        WorkType = "material"
	WorkTypeServiceMaterial WorkType = "service&material"
	WorkTypeCrane           WorkType = "crane"
)

func (t WorkType) IsValid() bool {
	switch t {
	case WorkTypeLabor, WorkTypeService, WorkTypeMaterial, WorkTypeServiceMaterial, WorkTypeCrane:
		return true
	}
	return false
}

func (t *WorkType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("work type must be string")
	}
	if str != "" && !WorkType(str).IsValid() {
		return errors.New("invalid work type")
	}
	*t = WorkType(str)
	return nil
}

// DocumentStatus is shared by every document kind; which values a kind accepts
// is decided by documentRules.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusSent      DocumentStatus = "sent"
	DocumentStatusAccepted  DocumentStatus = "accepted"
	DocumentStatusDeclined  DocumentStatus = "declined"
	DocumentStatusCancelled DocumentStatus = "cancelled"
	DocumentStatusOnHold    DocumentStatus = "on hold"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusPartially PaymentStatus = "partially"
	PaymentStatusPaid      PaymentStatus = "paid"
)

type MovementType string

const (
	MovementTypeOutbound MovementType = "outbound"
	MovementTypeReturn   MovementType = "return"
)

func (t MovementType) IsValid() bool {
	return t == MovementTypeOutbound || t == MovementTypeReturn
}

type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "pending"
	MovementStatusConfirmed MovementStatus = "confirmed"
	MovementStatusCancelled MovementStatus = "cancelled"
)

type InventoryRecordType string

const (
	InventoryRecordTypeIn  InventoryRecordType = "in"
	InventoryRecordTypeOut InventoryRecordType = "out"
)

type WorkProgressStatus string

const (
	WorkProgressStatusNotStarted WorkProgressStatus = "not_started"
	WorkProgressStatusInProgress WorkProgressStatus = "in_progress"
	WorkProgressStatusCompleted  WorkProgressStatus = "completed"
)

type ContractorEmployeeType string

const (
	ContractorEmployeeTypeContractor ContractorEmployeeType = "contractor"
	ContractorEmployeeTypeEmployee   ContractorEmployeeType = "employee"
)

func (t ContractorEmployeeType) IsValid() bool {
	return t == ContractorEmployeeTypeContractor || t == ContractorEmployeeTypeEmployee
}

func (t *ContractorEmployeeType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("contractor employee type must be string")
	}
	if !ContractorEmployeeType(str).IsValid() {
		return errors.New("invalid contractor employee type")
	}
	*t = ContractorEmployeeType(str)
	return nil
}

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

type HistoryAction string

const (
	HistoryActionCreate  HistoryAction = "C"
	HistoryActionUpdate  HistoryAction = "U"
	HistoryActionDelete  HistoryAction = "D"
	HistoryActionConvert HistoryAction = "CV"
	HistoryActionConfirm HistoryAction = "CF"
)

// EventType names the outbox events published for downstream consumers.
type EventType string

const (
	EventDocumentConverted   EventType = "document.converted"
	EventInvoicePayment      EventType = "invoice.payment"
	EventStockConfirmed      EventType = "stock.confirmed"
	EventWorkProgressUpdated EventType = "work_progress.updated"
)
