// Command syncdoc exercises the diff, patch, and structural-diff engines
// from the command line, and runs a minimal synchronization client
// against a line-framed transport on stdin/stdout.
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"github.com/kenshaw/syncdoc/jsondiff"
	"github.com/kenshaw/syncdoc/textdiff"
)

var cli struct {
	Diff struct {
		BaseFile   *os.File `arg:"" help:"Base text file."`
		UpdateFile *os.File `arg:"" help:"Updated text file."`
	} `cmd:"" help:"Print a tab-separated delta turning base into update."`

	Patch struct {
		BaseFile  *os.File `arg:"" help:"Base text file."`
		DeltaFile *os.File `arg:"" help:"Delta file produced by 'diff'."`
	} `cmd:"" help:"Apply a delta to base and print the result."`

	JSONDiff struct {
		BaseFile   *os.File `arg:"" help:"Base JSON file."`
		UpdateFile *os.File `arg:"" help:"Updated JSON file."`
	} `cmd:"" name:"json-diff" help:"Print the structural diff turning base into update."`

	JSONApply struct {
		BaseFile *os.File `arg:"" help:"Base JSON file."`
		DiffFile *os.File `arg:"" help:"Structural diff file produced by 'json-diff'."`
	} `cmd:"" name:"json-apply" help:"Apply a structural diff to base and print the result."`

	Sync struct {
		App    string `help:"Application namespace for persisted keys." default:"syncdoc"`
		Bucket string `arg:"" help:"Bucket name."`
	} `cmd:"" help:"Run a sync client against stdin/stdout as the transport."`
}

func mustReadAll(f *os.File) []byte {
	data, err := ioutil.ReadAll(f)
	if err != nil {
		log.WithError(err).Fatal("reading input file")
	}
	return data
}

func main() {
	log.SetHandler(text.New(os.Stderr))

	ctx := kong.Parse(&cli)
	switch ctx.Command() {
	case "diff <base-file> <update-file>":
		runDiff()
	case "patch <base-file> <delta-file>":
		runPatch()
	case "json-diff <base-file> <update-file>":
		runJSONDiff()
	case "json-apply <base-file> <diff-file>":
		runJSONApply()
	case "sync <bucket>":
		runSync()
	default:
		ctx.Fatalf("unhandled command %q", ctx.Command())
	}
}

func runDiff() {
	config := textdiff.NewDefaultConfig()
	text1 := string(mustReadAll(cli.Diff.BaseFile))
	text2 := string(mustReadAll(cli.Diff.UpdateFile))
	diffs := config.Diff(text1, text2, true)
	diffs = config.DiffCleanupEfficiency(diffs)
	delta := config.DiffToDelta(diffs)
	fmt.Println(delta)
}

func runPatch() {
	config := textdiff.NewDefaultConfig()
	base := string(mustReadAll(cli.Patch.BaseFile))
	delta := strings.TrimSuffix(string(mustReadAll(cli.Patch.DeltaFile)), "\n")
	diffs, err := config.DiffFromDelta(base, delta)
	if err != nil {
		log.WithError(err).Fatal("decoding delta")
	}
	patches := config.PatchMake(diffs)
	result, _ := config.PatchApply(patches, base)
	fmt.Println(result)
}

func runJSONDiff() {
	engine := jsondiff.New(nil)
	var a, b map[string]interface{}
	if err := json.Unmarshal(mustReadAll(cli.JSONDiff.BaseFile), &a); err != nil {
		log.WithError(err).Fatal("decoding base JSON")
	}
	if err := json.Unmarshal(mustReadAll(cli.JSONDiff.UpdateFile), &b); err != nil {
		log.WithError(err).Fatal("decoding update JSON")
	}
	d := engine.ObjectDiff(a, b)
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("encoding diff")
	}
	fmt.Println(string(out))
}

func runJSONApply() {
	engine := jsondiff.New(nil)
	var base map[string]interface{}
	if err := json.Unmarshal(mustReadAll(cli.JSONApply.BaseFile), &base); err != nil {
		log.WithError(err).Fatal("decoding base JSON")
	}
	var d jsondiff.Diff
	if err := json.Unmarshal(mustReadAll(cli.JSONApply.DiffFile), &d); err != nil {
		log.WithError(err).Fatal("decoding structural diff")
	}
	out, err := engine.ApplyObjectDiff(base, d)
	if err != nil {
		log.WithError(err).Fatal("applying structural diff")
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("encoding result")
	}
	fmt.Println(string(data))
}
