package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/explog-analyzer/explog/internal/batch"
	"github.com/explog-analyzer/explog/internal/sampler"
)

// prompter reads answers line by line. At end of input every further answer is blank.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed reply. io.EOF is returned only when input ended
// before anything was typed.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return line, nil
}

// askOptional is ask with end of input treated as a blank reply.
func (p *prompter) askOptional(question string) (string, error) {
	answer, err := p.ask(question)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return answer, err
}

// runFlags pre-answer prompts. A prompt is only shown when its flag was not set.
type runFlags struct {
	start    string
	end      string
	mode     string
	maxRound int
	samples  int
	preview  bool
}

// collectRequest gathers a batch request from flags and, for anything left unset, prompts.
func collectRequest(p *prompter, f runFlags, changed func(name string) bool) (batch.Request, error) {
	req := batch.Request{Sampler: sampler.Options{Count: sampler.DefaultCount}}

	if changed("start") {
		req.Start = f.start
	} else {
		fmt.Fprintln(p.out, "--- ML Experiment Log Metric Extractor ---")
		answer, err := p.ask("Enter start time (format YYYY-MM-DD-HH-MM): ")
		if err != nil {
			return req, fmt.Errorf("reading start time: %w", err)
		}
		req.Start = answer
	}

	if changed("end") {
		req.End = f.end
	} else {
		answer, err := p.askOptional("Enter end time (format YYYY-MM-DD-HH-MM, press Enter if same as start): ")
		if err != nil {
			return req, fmt.Errorf("reading end time: %w", err)
		}
		req.End = answer
	}
	if req.End == "" {
		req.End = req.Start
	}

	if changed("mode") {
		mode, err := sampler.ParseMode(f.mode)
		if err != nil {
			return req, err
		}
		req.Sampler.Mode = mode
	} else {
		for {
			answer, err := p.ask("Select extraction mode ('all' or 'sampled'): ")
			if err != nil {
				return req, fmt.Errorf("reading mode: %w", err)
			}
			if mode, err := sampler.ParseMode(answer); err == nil {
				req.Sampler.Mode = mode
				break
			}
			fmt.Fprintln(p.out, "Invalid input, please enter 'all' or 'sampled'.")
		}
	}

	if req.Sampler.Mode == sampler.ModeSampled {
		if err := collectSampling(p, f, changed, &req.Sampler); err != nil {
			return req, err
		}
	}

	if changed("preview") {
		req.Preview = f.preview
	} else {
		answer, err := p.askOptional("Preview results in the terminal? (y/n, default n): ")
		if err != nil {
			return req, fmt.Errorf("reading preview choice: %w", err)
		}
		req.Preview = strings.ToLower(answer) == "y"
	}
	return req, nil
}

// collectSampling asks for the round ceiling and then the sample count. The first unparsable
// answer stops the questions and keeps whatever was already accepted.
func collectSampling(p *prompter, f runFlags, changed func(string) bool, opts *sampler.Options) error {
	if changed("max-round") {
		opts.MaxRound = sampler.Ceiling(f.maxRound)
	} else {
		answer, err := p.askOptional("Enter the maximum round to sample up to (optional, press Enter for no limit): ")
		if err != nil {
			return fmt.Errorf("reading max round: %w", err)
		}
		if answer != "" {
			n, err := strconv.Atoi(answer)
			if err != nil {
				fmt.Fprintln(p.out, "Invalid input, defaults will be used.")
				return nil
			}
			opts.MaxRound = sampler.Ceiling(n)
		}
	}

	if changed("samples") {
		opts.Count = f.samples
		return nil
	}
	answer, err := p.askOptional(fmt.Sprintf("Enter number of samples (default %d): ", sampler.DefaultCount))
	if err != nil {
		return fmt.Errorf("reading sample count: %w", err)
	}
	if answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid input, defaults will be used.")
			return nil
		}
		opts.Count = n
	}
	return nil
}
