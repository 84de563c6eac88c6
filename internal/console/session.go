package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// Asker answers one question.
type Asker interface {
	Chat(ctx context.Context, message string, regenerate bool) (faq.ChatResponse, error)
}

// Session is an interactive chat loop. Each question runs as a future while a
// separate progress channel drives the spinner.
type Session struct {
	Asker    Asker
	In       io.Reader
	Out      io.Writer
	Progress io.Writer
	Interval time.Duration
	Prompt   string
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

var exitWords = map[string]bool{
	"salir": true,
	"exit":  true,
	"quit":  true,
}

type result struct {
	resp faq.ChatResponse
	err  error
}

// Run reads questions until EOF, an exit word or ctx cancellation.
func (s *Session) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 120 * time.Millisecond
	}
	prompt := s.Prompt
	if prompt == "" {
		prompt = "Tú: "
	}
	progress := s.Progress
	if progress == nil {
		progress = io.Discard
	}

	fmt.Fprintln(s.Out, "Escribe tu pregunta. Usa /regenerar <pregunta> para forzar el modelo generativo, 'salir' para terminar.")
	scanner := bufio.NewScanner(s.In)
	for {
		fmt.Fprint(s.Out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.Out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			fmt.Fprintln(s.Out, "¡Hasta luego!")
			return nil
		}
		question, regenerate := parseCommand(line)
		if question == "" {
			continue
		}

		res, err := s.ask(ctx, question, regenerate, interval, progress)
		if err != nil {
			return err
		}
		s.render(res)
	}
}

func (s *Session) ask(ctx context.Context, question string, regenerate bool, interval time.Duration, progress io.Writer) (result, error) {
	future := make(chan result, 1)
	go func() {
		resp, err := s.Asker.Chat(ctx, question, regenerate)
		future <- result{resp: resp, err: err}
	}()

	ticks := make(chan int)
	spinnerDone := make(chan struct{})
	go func() {
		defer close(spinnerDone)
		for frame := range ticks {
			fmt.Fprintf(progress, "\rPensando %s", spinnerFrames[frame%len(spinnerFrames)])
		}
		fmt.Fprint(progress, "\r            \r")
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer func() {
		close(ticks)
		<-spinnerDone
	}()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return result{}, ctx.Err()
		case res := <-future:
			return res, nil
		case <-ticker.C:
			ticks <- frame
			frame++
		}
	}
}

func (s *Session) render(res result) {
	if res.err != nil {
		fmt.Fprintf(s.Out, "Bot: error: %v\n", res.err)
		return
	}
	fmt.Fprintf(s.Out, "Bot: %s\n", res.resp.Reply)
	switch {
	case res.resp.Model == faq.SourceKNN && res.resp.Distance != nil:
		fmt.Fprintf(s.Out, "     [modelo: %s, distancia: %.4f, %d ms]\n", res.resp.Model, *res.resp.Distance, res.resp.DurationMs)
	case res.resp.Model != "":
		fmt.Fprintf(s.Out, "     [modelo: %s, %d ms]\n", res.resp.Model, res.resp.DurationMs)
	}
}

// parseCommand recognizes "/regenerar" only as a whole word: "/regenerarXYZ" is a plain question.
func parseCommand(line string) (string, bool) {
	const regenerate = "/regenerar"
	if len(line) < len(regenerate) || !strings.EqualFold(line[:len(regenerate)], regenerate) {
		return line, false
	}
	rest := line[len(regenerate):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return line, false
	}
	return strings.TrimSpace(rest), true
}
