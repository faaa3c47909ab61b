package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

const menuPrompt = "\n\n\t|=>> Press the letter (I) to enter image_url, (C) to chat with the model, and (Q) to exit: \n\t"

// answerFunc runs one question through the agent and returns whatever output
// was not already streamed.
type answerFunc func(ctx context.Context, imageURL, question string) (string, error)

// terminal is the I/C/Q command loop. Lines arrive on input (closed at EOF)
// and Ctrl-C arrives on interrupts.
type terminal struct {
	input      <-chan string
	interrupts <-chan os.Signal
	out        io.Writer
	answer     answerFunc

	imageURL string
}

func newTerminal(input <-chan string, interrupts <-chan os.Signal, out io.Writer, answer answerFunc) *terminal {
	return &terminal{
		input:      input,
		interrupts: interrupts,
		out:        out,
		answer:     answer,
	}
}

// readLines feeds r line by line into a channel that is closed at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (t *terminal) Run(ctx context.Context) {
	for {
		fmt.Fprint(t.out, menuPrompt)
		line, ok := t.read()
		if !ok {
			fmt.Fprintln(t.out, "\n\t|=>> Received quit signal => Exiting...")
			return
		}

		switch key := strings.ToLower(strings.TrimSpace(line)); {
		case strings.HasPrefix(key, "q"):
			fmt.Fprintln(t.out, "\n\t|=>> Received quit signal => Exiting...")
			return
		case strings.HasPrefix(key, "i"):
			fmt.Fprint(t.out, "\n\t|=>> Enter Image URL: ")
			url, ok := t.read()
			if !ok {
				continue
			}
			t.imageURL = strings.TrimSpace(url)
			color.New(color.FgGreen).Fprintln(t.out, "\t|=>> Image URL updated successfully. Press (C) to chat with the model")
		case strings.HasPrefix(key, "c"):
			if t.imageURL == "" {
				color.New(color.FgYellow).Fprintln(t.out, "\n\tNo image yet. Press (I) to enter an image URL first.")
				continue
			}
			t.chat(ctx)
			fmt.Fprintln(t.out, "\n\t====================================================")
		default:
			color.New(color.FgRed).Fprintln(t.out, "\n\tInvalid key!")
		}
	}
}

// read waits for the next input line. ok is false on EOF or Ctrl-C.
func (t *terminal) read() (string, bool) {
	select {
	case line, ok := <-t.input:
		return line, ok
	case <-t.interrupts:
		return "", false
	}
}

// chat prompts for questions until Ctrl-C or EOF. An interrupt that arrives
// while a question is being answered lets it finish first.
func (t *terminal) chat(ctx context.Context) {
	color.New(color.FgCyan).Fprintln(t.out, "\n\tEntering Chat Session - CTRL-C to start afresh!")
	for {
		fmt.Fprint(t.out, "\n\t|=>> Enter your query: ")
		question, ok := t.read()
		if !ok {
			return
		}
		if strings.TrimSpace(question) == "" {
			continue
		}

		done := make(chan struct{})
		var (
			output string
			err    error
		)
		go func() {
			defer close(done)
			output, err = t.answer(ctx, t.imageURL, question)
		}()

		interrupted := false
	wait:
		for {
			select {
			case <-done:
				break wait
			case <-t.interrupts:
				interrupted = true
			}
		}

		if output != "" {
			fmt.Fprintln(t.out, output)
		}
		if err != nil {
			color.New(color.FgRed).Fprintf(t.out, "\n\tError: %v\n", err)
		}
		if interrupted {
			return
		}
	}
}
