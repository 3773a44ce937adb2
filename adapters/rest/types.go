package rest

import "github.com/parleylabs/parley/client/domain/entities"

// guestRequest is the payload for guest-account creation
type guestRequest struct {
	DisplayName string `json:"display_name"`
}

// registerRequest is the payload for registration and guest conversion
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// loginRequest is the payload for email login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// googleRequest is the payload for Google auth flows
type googleRequest struct {
	Credential string `json:"credential"`
}

// authPayload is the data shape of all auth endpoints
type authPayload struct {
	User  *entities.Identity `json:"user"`
	Token string             `json:"token"`
}

// userPayload is the data shape of GET auth/me
type userPayload struct {
	User *entities.Identity `json:"user"`
}

// createSessionRequest is the payload for session creation
type createSessionRequest struct {
	ScenarioID        string `json:"scenario_id"`
	RoleID            string `json:"role_id"`
	RelationshipLevel string `json:"relationship_level"`
	Language          string `json:"language,omitempty"`
}

// submitTurnRequest is the payload for turn submission
type submitTurnRequest struct {
	Message string `json:"message"`
}

// turnPayload is the data shape of POST sessions/{id}/turns
type turnPayload struct {
	Turn    *entities.Turn    `json:"turn"`
	Session *entities.Session `json:"session"`
}

// rateSessionRequest is the payload for session rating
type rateSessionRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}
