package leave

import "time"

type submitDTO struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=500"`
}

type decisionDTO struct {
	Note string `json:"note" validate:"max=500"`
}

type requestDTO struct {
	ID           int64  `json:"id"`
	TeacherID    int64  `json:"teacher_id"`
	PeriodID     int64  `json:"period_id"`
	Date         string `json:"date"`
	Reason       string `json:"reason,omitempty"`
	Status       string `json:"status"`
	DecisionNote string `json:"decision_note,omitempty"`
	CreatedAt    string `json:"created_at"`
	DecidedAt    string `json:"decided_at,omitempty"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
}

type balanceDTO struct {
	PeriodID  int64  `json:"period_id"`
	Allowance int    `json:"allowance"`
	Used      int    `json:"used"`
	Available int    `json:"available"`
	Renewal   string `json:"renewal"`
}

type totalsDTO struct {
	TeacherID int64  `json:"teacher_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Pending   int    `json:"pending"`
	Approved  int    `json:"approved"`
	Rejected  int    `json:"rejected"`
	Cancelled int    `json:"cancelled"`
}

func toRequestDTO(r Request) requestDTO {
	dto := requestDTO{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		PeriodID:     r.PeriodID,
		Date:         r.Date.Format("2006-01-02"),
		Reason:       r.Reason,
		Status:       string(r.Status),
		DecisionNote: r.DecisionNote,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		dto.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	if r.CancelledAt != nil {
		dto.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return dto
}

func toRequestDTOs(list []Request) []requestDTO {
	dtos := make([]requestDTO, 0, len(list))
	for _, r := range list {
		dtos = append(dtos, toRequestDTO(r))
	}
	return dtos
}

func toBalanceDTO(b Balance) balanceDTO {
	return balanceDTO{
		PeriodID:  b.PeriodID,
		Allowance: b.Allowance,
		Used:      b.Used,
		Available: b.Available,
		Renewal:   string(b.Renewal),
	}
}
