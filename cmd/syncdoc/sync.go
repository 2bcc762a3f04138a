package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/kenshaw/syncdoc/syncclient"
)

// stdioTransport speaks the line-framed protocol over the process's own
// stdin/stdout, which is enough to drive a sync client against a remote
// fed through a pipe or a test harness.
type stdioTransport struct {
	out *bufio.Writer
}

func (t *stdioTransport) Send(line string) error {
	if _, err := t.out.WriteString(line + "\n"); err != nil {
		return err
	}
	return t.out.Flush()
}

// consoleUI logs every remote notification instead of rendering it,
// since there is no document editor attached to this command.
type consoleUI struct {
	logger *log.Entry
}

func (ui *consoleUI) Notify(id string, result syncclient.NotifyResult) {
	if result.Deleted {
		ui.logger.WithField("id", id).Info("entity deleted")
		return
	}
	ui.logger.WithField("id", id).WithField("value", fmt.Sprintf("%v", result.Value)).Info("entity updated")
}

func (ui *consoleUI) NotifyVersion(id string, value interface{}, version int) {
	ui.logger.WithField("id", id).WithField("version", version).Info("historical version received")
}

func (ui *consoleUI) GetData(id string) (syncclient.DataSnapshot, bool) {
	return syncclient.DataSnapshot{}, false
}

func (ui *consoleUI) Initialized() {
	ui.logger.Info("initial index loaded")
}

func runSync() {
	logger := log.WithField("bucket", cli.Sync.Bucket)
	transport := &stdioTransport{out: bufio.NewWriter(os.Stdout)}

	client, err := syncclient.NewClient(syncclient.Options{
		App:         cli.Sync.App,
		Bucket:      cli.Sync.Bucket,
		Persistence: syncclient.NewMemPersistence(),
		Transport:   transport,
		UI:          &consoleUI{logger: logger},
		Log:         logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("constructing sync client")
	}
	client.Connect()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := client.HandleLine(scanner.Text()); err != nil {
			logger.WithError(err).Warn("handling inbound line")
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Fatal("reading stdin")
	}
}
