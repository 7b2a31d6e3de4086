package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique ETL job ID
func NewJobID() string {
	return uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewUserID generates a unique user ID
func NewUserID() string {
	return uuid.New().String()
}
