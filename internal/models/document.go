package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentMedicalLicense    DocumentType = "MEDICAL_LICENSE"
	DocumentPharmacyLicense   DocumentType = "PHARMACY_LICENSE"
	DocumentDegreeCertificate DocumentType = "DEGREE_CERTIFICATE"
	DocumentIDProof           DocumentType = "ID_PROOF"
	DocumentPrescription      DocumentType = "PRESCRIPTION"
	DocumentLabReport         DocumentType = "LAB_REPORT"
	DocumentOther             DocumentType = "OTHER"
)

var documentTypes = map[DocumentType]struct{}{
	DocumentMedicalLicense:    {},
	DocumentPharmacyLicense:   {},
	DocumentDegreeCertificate: {},
	DocumentIDProof:           {},
	DocumentPrescription:      {},
	DocumentLabReport:         {},
	DocumentOther:             {},
}

// ParseDocumentType never fails: blank or unknown hints resolve to DocumentOther.
func ParseDocumentType(s string) DocumentType {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := documentTypes[t]; ok {
		return t
	}
	return DocumentOther
}

type Document struct {
	ID        uuid.UUID    `json:"id"`
	AccountID uuid.UUID    `json:"account_id"`
	Type      DocumentType `json:"type"`
	URL       string       `json:"url"`
	FileName  string       `json:"file_name"`
	FileSize  int64        `json:"file_size"`
	Version   int64        `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}
