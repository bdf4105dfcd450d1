package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/luma/cmdmgr/protocol"
)

const (
	// ExitToken ends an interactive session.
	ExitToken = "EXIT"

	Prompt = "Enter command messages (type EXIT to quit):"
)

// Console feeds lines read from In through the parser until EXIT or EOF.
type Console struct {
	In      io.Reader
	Out     io.Writer
	History *protocol.History

	// JSON writes one Result document per line instead of the raw output
	JSON bool

	Log *zap.Logger
}

func (c *Console) Run(ctx context.Context) error {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("console")

	if err := protocol.WriteLines(c.Out, Prompt); err != nil {
		return err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			readErr <- err
			close(lines)
		}()

		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		err = scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, exiting...")
			return nil

		case line, ok := <-lines:
			if !ok {
				log.Debug("Input closed")
				return <-readErr
			}

			line = protocol.RemoveTrailingCR(line)
			if line == ExitToken {
				log.Debug("Received EXIT")
				return nil
			}

			if err := c.handle(line); err != nil {
				return err
			}
		}
	}
}

func (c *Console) handle(line string) error {
	if !c.JSON {
		return protocol.Parse(c.Out, c.History, line)
	}

	data, err := json.Marshal(protocol.Decode(c.History, line))
	if err != nil {
		return err
	}

	_, err = c.Out.Write(append(data, '\n'))
	return err
}
