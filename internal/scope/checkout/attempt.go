package checkout

import (
	"time"
)

// Attempt is the durable record of one checkout.
type Attempt struct {
	ID          string  `json:"id"`
	PackageID   string  `json:"packageId"`
	LevelKey    string  `json:"levelKey"`
	Outcome     Outcome `json:"outcome"`
	TotalAmount int64   `json:"totalAmount"`
	Available   int64   `json:"available"`
	Shortfall   int64   `json:"shortfall,omitempty"`
	DraftID     string  `json:"draftId,omitempty"`
	ResponseID  string  `json:"responseId,omitempty"`
	// Risk marks a purchase whose configuration may not have been persisted.
	Risk      bool      `json:"risk"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func attemptFrom(req Request, res *Result) Attempt {
	a := Attempt{
		ID:          res.AttemptID,
		PackageID:   req.PackageID,
		LevelKey:    req.LevelKey,
		Outcome:     res.Outcome,
		TotalAmount: res.TotalAmount,
		Available:   res.Available,
		Shortfall:   res.Shortfall,
		DraftID:     res.DraftID,
		ResponseID:  res.ResponseID,
		Risk:        res.SoftCompleted,
		Warnings:    append([]string(nil), res.Warnings...),
		CreatedAt:   time.Now().UTC(),
	}
	if res.Err != nil {
		a.ErrorCode = string(res.Err.Code)
	}
	return a
}
