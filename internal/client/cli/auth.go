package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/learnhub/internal/client/session"
	"github.com/dmitrijs2005/learnhub/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the account details and creates the account. It does
// not sign the user in.
func (a *App) Register(ctx context.Context) error {
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	u, err := a.session.Register(ctx, session.RegisterRequest{
		FullName:        fullName,
		Email:           email,
		Password:        string(password),
		ConfirmPassword: string(confirm),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account created for %s. You can now login.\n", u.Email)
	return nil
}

// Login prompts for credentials, offering the last used email as default.
func (a *App) Login(ctx context.Context) error {
	prompt := "Enter email"
	last, err := a.store.LastEmail(ctx)
	if err != nil {
		a.logger.Debug(ctx, "no last email", "error", err)
	}
	if last != "" {
		prompt = fmt.Sprintf("Enter email [%s]", last)
	}

	email, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if email == "" {
		email = last
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, email, string(password)); err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	u := a.session.User()
	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", u.FullName, u.Role)
	return nil
}

// Logout leaves any live session and signs out. It always succeeds locally.
func (a *App) Logout(ctx context.Context) error {
	_ = a.Leave(ctx)
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Me re-reads and prints the profile.
func (a *App) Me(ctx context.Context) error {
	if err := a.session.RefreshUser(ctx); err != nil {
		return err
	}
	u := a.session.User()
	if u == nil {
		return fmt.Errorf("not signed in")
	}

	fmt.Fprintf(a.out, "%s <%s>\n", u.FullName, u.Email)
	fmt.Fprintf(a.out, "  role: %s\n", u.Role)
	if u.IsSubscribed {
		fmt.Fprintf(a.out, "  plan: %s\n", u.SubscriptionPlan)
	}
	if u.ProfilePictureURL != "" {
		fmt.Fprintf(a.out, "  picture: %s\n", u.ProfilePictureURL)
	}
	return nil
}

// Avatar uploads the image at path as the profile picture.
func (a *App) Avatar(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	u, err := a.users.UploadProfilePicture(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if err := a.session.RefreshUser(ctx); err != nil {
		a.logger.Warn(ctx, "profile refresh after upload failed", "error", err)
	}
	fmt.Fprintf(a.out, "Profile picture updated: %s\n", u.ProfilePictureURL)
	return nil
}
