package handlers

import (
	"encoding/json"

	"github.com/neweracoin/wfdropbackend/models"
)

// claimKey accepts both "35" and 35; clients send either.
type claimKey string

func (k *claimKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = claimKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*k = claimKey(n.String())
	return nil
}

type userRequest struct {
	User models.TelegramUser `json:"user"`
}

type loginRequest struct {
	User         models.TelegramUser `json:"user"`
	ReferralCode string              `json:"referralCode" validate:"max=64"`
}

type botStartRequest struct {
	User    models.TelegramUser `json:"user"`
	Payload string              `json:"payload" validate:"max=64"`
}

type referralsRequest struct {
	ReferralCode string `json:"referralCode" validate:"required,max=64"`
}

type pointsRequest struct {
	PointsNo float64             `json:"pointsNo" validate:"gte=0"`
	User     models.TelegramUser `json:"user"`
}

type claimRequest struct {
	User     models.TelegramUser `json:"user"`
	ClaimKey claimKey            `json:"claimTreshold" validate:"required,max=64"`
}

type timerRequest struct {
	User     models.TelegramUser `json:"user"`
	ClaimKey claimKey            `json:"claimTreshold" validate:"required,max=64"`
	Time     float64             `json:"time" validate:"gt=0"`
}

type boostRequest struct {
	User         models.TelegramUser `json:"user"`
	BoostCode    string              `json:"boostCode" validate:"max=64"`
	RefBoostCode string              `json:"refBoostCode" validate:"max=64"`
}

type refreshRequest struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=score referral"`
	Force bool   `json:"force"`
}
