package dto

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest carries admin export filters.
type ExportRequest struct {
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
	FromDate   string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	ToDate     string `json:"to_date" validate:"omitempty,datetime=2006-01-02"`
	Status     string `json:"status"`
	CategoryID string `json:"category_id"`
}

// ExportResult holds the rendered document and its metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}
