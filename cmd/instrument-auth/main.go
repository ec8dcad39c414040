package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vaonis-tools/instrument-auth/auth"
	"github.com/vaonis-tools/instrument-auth/cmd/flags"
	"github.com/vaonis-tools/instrument-auth/keyextract"
)

var flagInput = &cli.StringFlag{
	Name:  "input",
	Usage: "APK/XAPK/ZIP artifact or decoded folder to scan",
}
var flagSmali = &cli.StringFlag{
	Name:  "smali",
	Usage: "Path to " + keyextract.SmaliFileName,
}
var flagSearchRoot = &cli.StringFlag{
	Name:  "search-root",
	Usage: "Root directory to search for disassembly sources",
}
var flagAPK = &cli.StringFlag{
	Name:  "apk",
	Usage: "APK to decode with apktool",
}
var flagOut = &cli.StringFlag{
	Name:    "out",
	Usage:   "Output path for the base64 key (default: <repo root>/" + auth.DefaultKeyFileName + ")",
	EnvVars: []string{auth.KeyFileEnvVar},
}
var flagApktool = &cli.StringFlag{
	Name:  "apktool",
	Usage: "Path to the apktool binary (default: apktool on PATH or tools/apktool)",
}
var flagJSON = &cli.BoolFlag{
	Name:  "json",
	Usage: "Emit machine-readable JSON output",
}

var flagChallenge = &cli.StringFlag{
	Name:     "challenge",
	Required: true,
	Usage:    "Server-issued challenge from the status response",
}
var flagTelescopeID = &cli.StringFlag{
	Name:     "telescope-id",
	Required: true,
	Usage:    "Telescope identifier from the status response",
}
var flagBootCount = &cli.IntFlag{
	Name:     "boot-count",
	Required: true,
	Usage:    "Boot count from the status response",
}
var flagKeyFile = &cli.StringFlag{
	Name:  "key-file",
	Usage: "Signing key file (default: conventional locations)",
}
var flagKeyBase64 = &cli.StringFlag{
	Name:  "key-base64",
	Usage: "Base64 signing key material, takes precedence over key-file",
}

func main() {
	app := &cli.App{
		Name:  "instrument-auth",
		Usage: "Recover the instrument signing key and build authorization headers",
		Commands: []*cli.Command{
			{
				Name:  "extract-key",
				Usage: "Extract the embedded auth key from application artifacts",
				Flags: append([]cli.Flag{
					flagInput, flagSmali, flagSearchRoot, flagAPK,
					flagOut, flagApktool, flagJSON,
				}, flags.CommonFlags...),
				Action: runExtractKey,
			},
			{
				Name:  "header",
				Usage: "Build the Authorization header for a control request",
				Flags: append([]cli.Flag{
					flagChallenge, flagTelescopeID, flagBootCount,
					flagKeyFile, flagKeyBase64,
				}, flags.CommonFlags...),
				Action: runHeader,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runExtractKey(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	// smali/search-root win over input/apk, matching the flag semantics:
	// the more specific selector is the one the operator meant.
	inputPath := cCtx.String(flagSmali.Name)
	if inputPath == "" {
		inputPath = cCtx.String(flagSearchRoot.Name)
	}
	if inputPath == "" {
		inputPath = cCtx.String(flagInput.Name)
	}
	if inputPath == "" {
		inputPath = cCtx.String(flagAPK.Name)
	}

	outputPath, err := keyextract.EnsureAuthKey(cCtx.Context, keyextract.Config{
		InputPath:   inputPath,
		KeyPath:     cCtx.String(flagOut.Name),
		ApktoolPath: cCtx.String(flagApktool.Name),
		Prompt:      stdinPrompt,
		Log:         logger,
	})

	if cCtx.Bool(flagJSON.Name) {
		return emitJSON(outputPath, err)
	}
	if err != nil {
		return err
	}
	fmt.Println("Wrote auth key file.")
	return nil
}

func runHeader(cCtx *cli.Context) error {
	header, err := auth.BuildAuthorizationHeader(
		auth.AuthContext{
			Challenge:   cCtx.String(flagChallenge.Name),
			TelescopeID: cCtx.String(flagTelescopeID.Name),
			BootCount:   cCtx.Int(flagBootCount.Name),
		},
		auth.KeySource{
			MaterialBase64: cCtx.String(flagKeyBase64.Name),
			File:           cCtx.String(flagKeyFile.Name),
		},
	)
	if err != nil {
		return err
	}
	fmt.Println(header)
	return nil
}

func emitJSON(outputPath string, err error) error {
	enc := json.NewEncoder(os.Stdout)
	if err != nil {
		_ = enc.Encode(map[string]any{"ok": false, "error": err.Error()})
		return cli.Exit("", 1)
	}
	_ = enc.Encode(map[string]any{"ok": true, "outputFile": filepath.Base(outputPath)})
	return nil
}

func stdinPrompt(message string) (string, error) {
	fmt.Fprint(os.Stderr, message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
