package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tbxark/formstate"
	"github.com/tbxark/formstate/config"
	"github.com/tbxark/formstate/registry"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := conf.Logger()

	forms := registry.New(registry.WithLogger(logger))
	forms.Inject(NewLoginForm(append(conf.Options(), formstate.WithLogger(logger))...))

	form, err := registry.Get[*LoginForm](forms)
	if err != nil {
		log.Fatalf("get form: %v", err)
	}

	render := formstate.NewListener(form.Form, func() {
		if form.Progressing() {
			fmt.Println("[ui] submitting...")
			return
		}
		if errs := form.Errors(); len(errs) > 0 {
			fmt.Print(formstate.FormatValidationErrors(errs))
			return
		}
		fmt.Println("[ui] form refreshed")
	}, formstate.UpdateWhen(func(f *formstate.Form) bool {
		// Skip rebuilds while nothing user-visible changed.
		return !f.Loading()
	}))
	// Attach after the initial render, never during construction.
	render.Attach()
	defer render.Close()

	fmt.Println("commands: email <v> | password <v> | submit | reset | metrics | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "email", "password":
			if err := form.SetValue(cmd, arg); err != nil {
				fmt.Println(err)
			}
		case "submit":
			if err := form.Form.Submit(context.Background()); err != nil {
				fmt.Println("submit failed:", err)
			} else if form.Success() {
				fmt.Println("logged in")
			} else if missing := form.MissingFields(); len(missing) > 0 {
				fmt.Print(formstate.FormatMissingFields(missing))
			}
		case "reset":
			form.Form.Reset()
		case "metrics":
			fmt.Print(formstate.FormatMetrics(form.PerformanceMetrics()))
		case "quit", "exit":
			return
		case "":
		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}
