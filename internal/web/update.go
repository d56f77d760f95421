// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/fault"
)

// Update kinds and password authentication modes accepted by PATCH /user.
const (
	UpdatePassword    = "PASSWORD"
	UpdateEmail       = "EMAIL"
	UpdateDescription = "DESCRIPTION"

	AuthExistingPassword = "USING_EXISTING_PASSWORD"
	AuthOTPEmail         = "USING_OTP_EMAIL"
)

// updateBody is the wire form of an account update.
type updateBody struct {
	Update      string `json:"update"`
	Auth        string `json:"auth"`
	Content     string `json:"content"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
	OTP         string `json:"otp"`
	Email       string `json:"email"`
}

// request maps the body onto one auth.UpdateRequest variant. An unknown
// update kind yields nil, which the service rejects.
func (b updateBody) request() (auth.UpdateRequest, error) {
	switch b.Update {
	case UpdateDescription:
		return auth.DescriptionUpdate{Description: b.Content}, nil
	case UpdateEmail:
		return auth.EmailUpdate{Password: b.Password, Email: b.Email, Code: b.OTP}, nil
	case UpdatePassword:
		switch b.Auth {
		case AuthExistingPassword:
			return auth.PasswordWithExisting{Current: b.Password, New: b.NewPassword}, nil
		case AuthOTPEmail:
			return auth.PasswordWithOTP{Code: b.OTP, New: b.NewPassword}, nil
		default:
			return nil, fault.Unauthorized("UPDATE_AUTH_INVALID",
				"You need to select a valid authentication state, in order to be authorized to perform this action!", nil)
		}
	default:
		return nil, nil
	}
}
