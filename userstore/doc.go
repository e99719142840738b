// Package userstore provides wbauth.UserProvider implementations: an in-memory store
// for development and tests, and a Postgres store on pgx with goose migrations.
//
// Both return wbauth.ErrUserNotFound for a missing user and wbauth.ErrAccountExists
// when the email or username is taken.
package userstore
