package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// JobObserver receives job lifecycle events from the runner.
type JobObserver interface {
	JobStarted(name string)
	JobFinished(result pgscrape.JobResult)
}

// ProgressReporter is a JobObserver that must be stopped once the run ends.
type ProgressReporter interface {
	JobObserver
	Stop()
}

// NewProgressReporter returns a spinner display for terminals and a plain
// line printer otherwise.
// A reporter that also implements io.Writer should receive console log output
// for the duration of the run.
func NewProgressReporter(out io.Writer, jobs []string) ProgressReporter {
	if IsInteractive() {
		return StartSpinnerProgress(out, jobs)
	}
	return NewLineProgress(out)
}

// LineProgress prints one line per event. Used in CI and when output is piped.
type LineProgress struct {
	mu  sync.Mutex
	out io.Writer
}

func NewLineProgress(out io.Writer) *LineProgress {
	return &LineProgress{out: out}
}

func (p *LineProgress) JobStarted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", SymbolArrowRight, name)
}

func (p *LineProgress) JobFinished(r pgscrape.JobResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, resultLine(r))
}

func (p *LineProgress) Stop() {}

func resultLine(r pgscrape.JobResult) string {
	elapsed := r.Duration.Round(10 * time.Millisecond)
	if r.Failed() {
		return fmt.Sprintf("%s %s failed after %s: %v", SymbolCross, r.Name, elapsed, r.Err)
	}
	return fmt.Sprintf("%s %s: %d rows into %s (%s)", SymbolCheck, r.Name, r.Rows, r.Table, elapsed)
}

type jobState int

const (
	jobPending jobState = iota
	jobRunning
	jobDone
)

type jobLine struct {
	name   string
	state  jobState
	result pgscrape.JobResult
}

type (
	jobStartedMsg  struct{ name string }
	jobFinishedMsg struct{ result pgscrape.JobResult }
	stopMsg        struct{}
)

// progressModel renders one line per job with a spinner on the running one.
type progressModel struct {
	spinner spinner.Model
	jobs    []jobLine
	stopped bool
}

func newProgressModel(jobs []string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	lines := make([]jobLine, len(jobs))
	for i, name := range jobs {
		lines[i] = jobLine{name: name}
	}
	return progressModel{spinner: s, jobs: lines}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case jobStartedMsg:
		if i := m.find(msg.name); i >= 0 {
			m.jobs[i].state = jobRunning
		}
		return m, nil
	case jobFinishedMsg:
		if i := m.find(msg.result.Name); i >= 0 {
			m.jobs[i].state = jobDone
			m.jobs[i].result = msg.result
		}
		return m, nil
	case stopMsg:
		m.stopped = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) find(name string) int {
	for i, j := range m.jobs {
		if j.name == name {
			return i
		}
	}
	return -1
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, j := range m.jobs {
		switch j.state {
		case jobPending:
			if m.stopped {
				b.WriteString(MutedStyle.Render(SymbolPending+" "+j.name+" (not run)") + "\n")
				continue
			}
			b.WriteString(MutedStyle.Render(SymbolPending+" "+j.name) + "\n")
		case jobRunning:
			b.WriteString(m.spinner.View() + " " + j.name + "\n")
		case jobDone:
			line := resultLine(j.result)
			if j.result.Failed() {
				b.WriteString(ErrorStyle.Render(line) + "\n")
			} else {
				b.WriteString(SuccessStyle.Render(line) + "\n")
			}
		}
	}
	return b.String()
}

// SpinnerProgress drives a bubbletea program from runner callbacks.
type SpinnerProgress struct {
	program *tea.Program
	out     io.Writer
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	stopped bool
}

// StartSpinnerProgress starts rendering to out. Keyboard input is not read;
// Ctrl+C reaches the command's signal handler instead.
func StartSpinnerProgress(out io.Writer, jobs []string) *SpinnerProgress {
	p := &SpinnerProgress{
		program: tea.NewProgram(newProgressModel(jobs), tea.WithOutput(out), tea.WithInput(nil), tea.WithoutSignalHandler()),
		out:     out,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
	return p
}

func (p *SpinnerProgress) JobStarted(name string) {
	p.program.Send(jobStartedMsg{name: name})
}

func (p *SpinnerProgress) JobFinished(r pgscrape.JobResult) {
	p.program.Send(jobFinishedMsg{result: r})
}

// Write prints b above the progress lines, so log output does not tear the display.
func (p *SpinnerProgress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return p.out.Write(b)
	}
	p.program.Send(tea.Println(strings.TrimRight(string(b), "\n"))())
	return len(b), nil
}

// Stop renders the final frame and waits for the program to exit.
func (p *SpinnerProgress) Stop() {
	p.once.Do(func() {
		p.program.Send(stopMsg{})
		<-p.done
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
	})
}
