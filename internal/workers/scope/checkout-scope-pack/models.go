// internal/workers/scope/checkout-scope-pack/models.go
package checkoutscopepack

import (
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/checkout"
)

type Input struct {
	PackageID string           `json:"packageId"`
	LevelKey  string           `json:"levelKey"`
	BasePrice int64            `json:"basePrice"`
	Responses models.Responses `json:"responses"`
	DraftID   string           `json:"draftId,omitempty"`
}

type Output struct {
	AttemptID      string           `json:"attemptId"`
	Outcome        checkout.Outcome `json:"outcome"`
	TotalAmount    int64            `json:"totalAmount"`
	Available      int64            `json:"available"`
	Shortfall      int64            `json:"shortfall"`
	DisplayBalance int64            `json:"displayBalance"`
	DraftID        string           `json:"draftId,omitempty"`
	ResponseID     string           `json:"responseId,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
	SoftCompleted  bool             `json:"softCompleted"`
	ErrorCode      string           `json:"errorCode,omitempty"`
}

func outputFrom(res *checkout.Result) *Output {
	out := &Output{
		AttemptID:      res.AttemptID,
		Outcome:        res.Outcome,
		TotalAmount:    res.TotalAmount,
		Available:      res.Available,
		Shortfall:      res.Shortfall,
		DisplayBalance: res.DisplayBalance,
		DraftID:        res.DraftID,
		ResponseID:     res.ResponseID,
		Warnings:       res.Warnings,
		SoftCompleted:  res.SoftCompleted,
	}
	if res.Err != nil {
		out.ErrorCode = string(res.Err.Code)
	}
	return out
}
