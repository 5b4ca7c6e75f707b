package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tbxark/formstate"
)

// LoginForm collects an email and password. It embeds the engine, so the
// registry's dispose path can clear its validation cache, and implements
// the Init/FormValid/FormReset hooks.
type LoginForm struct {
	*formstate.Form
	inits atomic.Int64
}

func NewLoginForm(opts ...formstate.Option) *LoginForm {
	lf := &LoginForm{}
	lf.Form = formstate.New(lf, opts...)
	return lf
}

func (lf *LoginForm) Fields() []*formstate.Field {
	return []*formstate.Field{
		{
			Name:        "email",
			DisplayName: "Email",
			Required:    true,
			Validate: func(v string) error {
				if v == "" {
					return errors.New("email is required")
				}
				if !strings.Contains(v, "@") {
					return errors.New("email must contain '@'")
				}
				return nil
			},
			OnValid: func(v any) {
				fmt.Printf("email looks good: %v\n", v)
			},
		},
		{
			Name:        "password",
			DisplayName: "Password",
			Required:    true,
			Validate: func(v string) error {
				if len(v) < 8 {
					return errors.New("password must be at least 8 characters")
				}
				return nil
			},
		},
		{
			Name:         "remember",
			DisplayName:  "Remember me",
			InitialValue: false,
		},
	}
}

func (lf *LoginForm) Init(ctx context.Context) error {
	lf.inits.Add(1)
	// Stand-in for loading a remembered account from storage.
	time.Sleep(50 * time.Millisecond)
	return nil
}

func (lf *LoginForm) Submit(ctx context.Context, values formstate.Values) error {
	email, _ := values["email"].(string)
	fmt.Printf("logging in as %s...\n", email)
	time.Sleep(200 * time.Millisecond)
	return nil
}

func (lf *LoginForm) FormValid(values formstate.Values) {
	fmt.Println("form is valid, submit enabled")
}

func (lf *LoginForm) FormReset() {
	fmt.Println("form cleared")
}
