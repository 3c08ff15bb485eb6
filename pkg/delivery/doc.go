// Package delivery sends issued passcodes to users by email or SMS.
//
// Delivery is best-effort. A Dispatcher never fails the caller: send errors
// are wrapped in *Error and logged at Config.FailureLevel, and the selected
// channel is returned either way. When no transport is registered for a
// channel the passcode is written to the log instead.
package delivery
