package models

import "time"

// Researcher is a human reviewer who documents assigned agents.
// Email is globally unique; registration fails if it already exists.
type Researcher struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	GithubUsername  string    `json:"githubUsername,omitempty"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	RepositoryURL   string    `json:"repositoryUrl,omitempty"`
	LinkedinProfile string    `json:"linkedinProfile,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
