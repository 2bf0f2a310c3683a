//go:build mage
// +build mage

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var Default = Build

var (
	binDir     = "bin"
	serverName = "proctop-server"
	cliName    = "proctop"
)

var targets = map[string]string{
	serverName: "./cmd/server.go",
	cliName:    "./cmd/cli",
}

// Builds the server and the CLI for the host platform.
func Build() error {
	return buildAll(nil, binDir)
}

// Regenerates the templ components in internal/web.
func Generate() error {
	return sh.RunV("templ", "generate", "-path", "internal/web")
}

// Runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Removes build output.
func Clean() error {
	return os.RemoveAll(binDir)
}

func buildAll(env map[string]string, dir string) error {
	for name, pkg := range targets {
		fmt.Printf("Building %s...\n", name)
		if err := sh.RunWithV(env, "go", "build", "-o", filepath.Join(dir, name), pkg); err != nil {
			return fmt.Errorf("failed to build %s: %w", name, err)
		}
	}
	return nil
}

type Pi mg.Namespace

var piDir = filepath.Join(binDir, "pi")

// Builds both binaries for the Raspberry Pi (linux/arm64).
func (Pi) Build() error {
	return buildAll(map[string]string{"GOOS": "linux", "GOARCH": "arm64"}, piDir)
}

// Copies the Pi binaries to ~/proctop on the host over SSH.
// Assumes SSH keys are set up for the host.
func (Pi) Deploy(host string, username string) error {
	mg.Deps(Pi.Build)
	connStr := fmt.Sprintf("%s@%s", username, host)
	deployPath := "/home/" + username + "/proctop"

	if err := sh.Run("ssh", connStr, "mkdir -p", deployPath); err != nil {
		return fmt.Errorf("failed to create deploy path on host: %w", err)
	}
	for name := range targets {
		fmt.Printf("Copying %s to %s:%s\n", name, connStr, deployPath)
		err := sh.Run("scp", filepath.Join(piDir, name), fmt.Sprintf("%s:%s/%s", connStr, deployPath, name))
		if err != nil {
			return fmt.Errorf("failed to deploy %s: %w", name, err)
		}
	}
	return nil
}

// Deploys and runs the server on the Pi. Blocks until the server exits;
// Ctrl+C forwards SIGTERM, a second Ctrl+C kills it.
func (Pi) Start(host string, username string) error {
	mg.Deps(mg.F(Pi.Deploy, host, username))
	client, err := sshClient(username, host)
	if err != nil {
		return fmt.Errorf("failed to create SSH client: %w", err)
	}
	defer client.Close()
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	session.Stdout = os.Stdout
	session.Stderr = os.Stderr
	if err := session.Start("~/proctop/" + serverName + " -source procfs"); err != nil {
		return fmt.Errorf("failed to start server on host: %w", err)
	}
	go func() {
		<-sigChan
		session.Signal(ssh.SIGTERM)
		<-sigChan
		session.Signal(ssh.SIGKILL)
		session.Close()
		os.Exit(1)
	}()

	if err := session.Wait(); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok && exitErr.ExitStatus() == 143 {
			fmt.Println("Server exited with SIGTERM")
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func sshClient(user, host string) (*ssh.Client, error) {
	var authMethods []ssh.AuthMethod

	conn, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK"))
	if err == nil {
		signers, err := agent.NewClient(conn).Signers()
		if err == nil {
			authMethods = append(authMethods, ssh.PublicKeys(preferRSASHA2(signers)...))
		}
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH keys available from the agent")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Dev only.
	}
	return ssh.Dial("tcp", net.JoinHostPort(host, "22"), config)
}

// preferRSASHA2 stops RSA keys from negotiating the deprecated ssh-rsa
// (SHA-1) signature.
func preferRSASHA2(signers []ssh.Signer) []ssh.Signer {
	out := make([]ssh.Signer, 0, len(signers))
	for _, signer := range signers {
		algSigner, ok := signer.(ssh.AlgorithmSigner)
		if !ok || signer.PublicKey().Type() != ssh.KeyAlgoRSA {
			out = append(out, signer)
			continue
		}
		mas, err := ssh.NewSignerWithAlgorithms(algSigner, []string{ssh.KeyAlgoRSASHA256, ssh.KeyAlgoRSASHA512})
		if err != nil {
			out = append(out, signer)
			continue
		}
		out = append(out, mas)
	}
	return out
}
