package domain

import "time"

// NoticeStatus represents the publication status of a funding notice.
type NoticeStatus string

const (
	NoticeStatusOpen     NoticeStatus = "open"
	NoticeStatusClosed   NoticeStatus = "closed"
	NoticeStatusUpcoming NoticeStatus = "upcoming"
)

// Agency is the funding agency that owns one or more notices.
type Agency struct {
	ID          string
	Name        string
	Acronym     string
	Description string
}

// NoticeFile is an uploaded attachment of a notice (the raw blob lives in
// object storage; extracted text lives in documents/document_chunks).
type NoticeFile struct {
	ID          string
	NoticeID    string
	FileName    string
	DisplayName string
	StoragePath string
	MimeType    string
	SizeBytes   int64
	CreatedAt   time.Time
}

// Notice represents a funding opportunity (edital).
type Notice struct {
	ID           string
	AgencyID     string
	AgencyName   string
	Title        string
	Summary      string
	Description  string
	AccessLink   string
	Status       NoticeStatus
	PublishDate  time.Time
	DeadlineDate time.Time
	BudgetMin    *float64
	BudgetMax    *float64
	TRLMin       *int
	TRLMax       *int
	Tags         []string
	Files        []NoticeFile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateNotice checks required fields and range invariants at write time.
func ValidateNotice(n *Notice) error {
	if n == nil {
		return ErrMissingRequiredField
	}
	if n.Title == "" || n.AgencyID == "" || n.Summary == "" || n.Description == "" {
		return ErrMissingRequiredField
	}
	if !isValidNoticeStatus(n.Status) {
		return ErrInvalidNoticeStatus
	}
	if n.BudgetMin != nil && n.BudgetMax != nil && *n.BudgetMin > *n.BudgetMax {
		return ErrInvalidBudgetRange
	}
	for _, trl := range []*int{n.TRLMin, n.TRLMax} {
		if trl != nil && (*trl < 1 || *trl > 9) {
			return ErrInvalidTRLValue
		}
	}
	if n.TRLMin != nil && n.TRLMax != nil && *n.TRLMin > *n.TRLMax {
		return ErrInvalidTRLRange
	}
	return nil
}

func isValidNoticeStatus(s NoticeStatus) bool {
	switch s {
	case NoticeStatusOpen, NoticeStatusClosed, NoticeStatusUpcoming:
		return true
	}
	return false
}
