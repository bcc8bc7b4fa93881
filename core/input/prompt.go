package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompt asks once for the path of the URL list and waits for the answer.
// The reader runs in its own goroutine and hands the result over a
// single-value channel, so a cancelled ctx returns immediately.
// An empty answer or closed input returns ErrNoFile.
func Prompt(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	type answer struct {
		path string
		err  error
	}

	fmt.Fprint(out, "Path to URL list: ")

	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			answers <- answer{err: fmt.Errorf("reading answer: %w", err)}
			return
		}
		path := strings.TrimSpace(line)
		if path == "" {
			answers <- answer{err: ErrNoFile}
			return
		}
		answers <- answer{path: path}
	}()

	select {
	case a := <-answers:
		return a.path, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
