package models

// Request types

type CreateDrawRequest struct {
	Participants []string `json:"participantes" binding:"required"`
}

type ClaimRequest struct {
	DrawID string `json:"id" binding:"required"`
	Name   string `json:"nome" binding:"required"`
}

// Response types

// CreateDrawResponse is the stored draw plus the link to share with the group.
type CreateDrawResponse struct {
	Draw
	Link    string `json:"link,omitempty"`
	Storage string `json:"armazenamento"` // "durable" or "local"
}

// DrawStatus is the public view of a draw. It never includes who drew whom.
type DrawStatus struct {
	ID           string   `json:"id"`
	Participants []string `json:"participantes"`
	Claimants    []string `json:"jaSortearam"`
	ClaimedCount int      `json:"totalSorteados"`
	TotalCount   int      `json:"totalParticipantes"`
	Complete     bool     `json:"completo"`
	CreatedAt    int64    `json:"criadoEm"`
}

type ClaimResponse struct {
	Recipient    string `json:"sorteado"`
	ClaimedCount int    `json:"totalSorteados"`
	TotalCount   int    `json:"totalParticipantes"`
	Complete     bool   `json:"completo"`
	Storage      string `json:"armazenamento"`
}

// ErrorResponse carries Recipient only when the caller already drew.
type ErrorResponse struct {
	Error     string `json:"error"`
	Recipient string `json:"sorteado,omitempty"`
}

// NewDrawStatus builds the public view of d.
func NewDrawStatus(d *Draw) DrawStatus {
	return DrawStatus{
		ID:           d.ID,
		Participants: append([]string(nil), d.Participants...),
		Claimants:    d.Claimants(),
		ClaimedCount: d.ClaimedCount(),
		TotalCount:   d.TotalCount(),
		Complete:     d.Complete(),
		CreatedAt:    d.CreatedAt,
	}
}
