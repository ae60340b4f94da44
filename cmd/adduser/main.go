// Command adduser provisions a user from the terminal and prints its id,
// which API clients send in the X-User-ID header.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"fintrack/internal/cli"
	"fintrack/internal/log"
)

func main() {
	email := flag.String("email", "", "email of the new user")
	flag.Parse()
	if *email == "" && flag.NArg() > 0 {
		*email = flag.Arg(0)
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -email user@example.com")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	password, err := readPassword()
	if err != nil {
		logger.Error("Failed to read password", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg, false)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	user, err := res.Service.ProvisionUser(ctx, *email, password)
	if err != nil {
		logger.Error("Failed to create user", log.FieldError, err)
		cancel()
		os.Exit(1)
	}
	fmt.Printf("created user %s with id %d\n", user.Email, user.ID)
}

// readPassword prompts twice on a terminal; piped input is read as one line.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
