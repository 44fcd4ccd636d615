// Package ui provides TUI view messages shared between components.
package ui

import (
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/launch"
	"github.com/quasar/mclaunch/internal/service"
)

// Navigation messages
type (
	// NavigateToHome returns to the home screen
	NavigateToHome struct{}

	// NavigateToLogin opens the offline login screen
	NavigateToLogin struct{}

	// NavigateToAuth opens the Microsoft device-code flow
	NavigateToAuth struct{}

	// NavigateToLaunch starts the launch view for the selected instance
	NavigateToLaunch struct {
		Instance string
	}
)

// Intent messages, handled by the app against the service layer
type (
	// OfflineLogin asks for an offline account called Nick
	OfflineLogin struct {
		Nick string
	}

	// AccountAuthenticated carries an account from a completed online login
	AccountAuthenticated struct {
		Account core.Account
	}

	// SelectInstance asks to make Name the selected instance
	SelectInstance struct {
		Name string
	}

	// SwitchAccount asks to select the account with ID
	SwitchAccount struct {
		ID string
	}

	// Logout removes the selected account
	Logout struct{}

	// RedeemCode submits an access code
	RedeemCode struct {
		Code string
	}
)

// Result messages
type (
	// StartupDone is sent once the stored accounts are reconciled
	StartupDone struct {
		Route service.Route
		Error error
	}

	// HomeLoaded is sent when the home screen data is fetched
	HomeLoaded struct {
		Home  *service.Home
		Error error
	}

	// LoginFailed reports a rejected login attempt
	LoginFailed struct {
		Error error
	}

	// ActionDone reports the result of an intent
	ActionDone struct {
		Route service.Route
		Error error
	}

	// BusEvent relays a launcher event
	BusEvent struct {
		Event events.Event
	}

	// LaunchStatusUpdate is sent during launch
	LaunchStatusUpdate struct {
		Status launch.Status
	}

	// LaunchComplete is sent when launch finishes
	LaunchComplete struct {
		Error error
	}
)
