package cli

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpgate/internal/client/autherr"
	"github.com/dmitrijs2005/srpgate/internal/client/flow"
	"github.com/dmitrijs2005/srpgate/internal/client/services"
	"github.com/dmitrijs2005/srpgate/internal/common"
)

// getSimpleText and getPassword are indirections used in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errPasswordMismatch = errors.New("passwords do not match")

// Login prompts for credentials and starts an exchange. The auth service
// wipes the password.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	a.email = email
	out, err := a.authService.Login(ctx, email, password)
	a.report(out, err)
	return err
}

func (a *App) SubmitOTP(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Enter verification code", a.out)
	if err != nil {
		return err
	}
	out, err := a.authService.SubmitOTP(ctx, code)
	a.report(out, err)
	return err
}

func (a *App) ResendOTP(ctx context.Context) error {
	if err := a.authService.ResendOTP(ctx); err != nil {
		a.report(flow.Outcome{}, err)
		return err
	}
	fmt.Fprintln(a.out, "A new code has been sent.")
	return nil
}

// ChangePassword handles the forced password change. On success the new
// password is used for a fresh login.
func (a *App) ChangePassword(ctx context.Context) error {
	password, err := a.newPassword()
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	out, err := a.authService.ForceChangePassword(ctx, password)
	a.report(out, err)
	return err
}

// ResetPassword asks for a reset code unless one was already sent, then
// prompts for the code and the new password.
func (a *App) ResetPassword(ctx context.Context) error {
	if a.authService.State().Phase != flow.ResetCodeSent {
		email, err := getSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return err
		}
		a.email = email
		out, err := a.authService.RequestPasswordReset(ctx, email)
		a.report(out, err)
		if err != nil {
			return err
		}
	}

	code, err := getSimpleText(a.reader, "Enter the code from the email", a.out)
	if err != nil {
		return err
	}
	password, err := a.newPassword()
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	out, err := a.authService.SubmitPasswordReset(ctx, code, password)
	a.report(out, err)
	return err
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		a.report(flow.Outcome{}, err)
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed.")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	phase := a.authService.State().Phase
	fmt.Fprintf(a.out, "State: %s", phase)
	switch {
	case phase.InFlight():
		fmt.Fprint(a.out, " (waiting for server)")
	case phase != flow.Idle && !phase.Terminal():
		fmt.Fprint(a.out, " (awaiting input)")
	}
	fmt.Fprintln(a.out)
	p, err := a.store.Principal()
	if err != nil {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)", p.Subject, p.Role)
	if !p.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, ", access token expires %s", p.ExpiresAt.Format("15:04:05"))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.email = ""
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// newPassword reads the new password twice. The first copy is returned, the
// second is wiped here.
func (a *App) newPassword() ([]byte, error) {
	first, err := getPassword("Enter new password", a.out)
	if err != nil {
		return nil, err
	}
	second, err := getPassword("Repeat new password", a.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 || subtle.ConstantTimeCompare(first, second) != 1 {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

// report prints what the user should do next.
func (a *App) report(out flow.Outcome, err error) {
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExchangeInProgress),
			errors.Is(err, services.ErrResendThrottled),
			errors.Is(err, services.ErrNotAuthenticated),
			errors.Is(err, services.ErrMissingInput):
			fmt.Fprintln(a.out, err)
		case errors.Is(err, autherr.ErrNetworkTransient):
			fmt.Fprintln(a.out, "Server unavailable, please try again.")
		default:
			fmt.Fprintln(a.out, autherr.MessageOf(err))
			if ae := autherr.Classify("", err); !ae.Retryable() && ae.Kind != autherr.KindAuthorizationDenied {
				fmt.Fprintln(a.out, "Retrying will not help, check that client and server SRP settings match.")
			}
		}
		a.logger.Debug(context.Background(), "command failed", "error", err)
		return
	}

	switch out.Kind {
	case flow.OutcomeAuthorized:
		fmt.Fprintln(a.out, "Login successful.")
	case flow.OutcomeMfaRequired:
		fmt.Fprintln(a.out, "A verification code is required, use 'otp' to enter it.")
	case flow.OutcomeForcedChangeRequired:
		fmt.Fprintln(a.out, "You must change your password, use 'change'.")
	case flow.OutcomeResetCodeSent:
		fmt.Fprintln(a.out, "A reset code has been sent.")
	case flow.OutcomeResetCompleted:
		fmt.Fprintln(a.out, "Password changed, you can log in now.")
	}
}
