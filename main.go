package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stockdesk/config"
	"stockdesk/internal/logging"
	"stockdesk/llm/agent"
	"stockdesk/tui/approval"
	"stockdesk/tui/renderer"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 默认脚本中的两轮提问
const (
	priceQuestion = "What is the price of AAPL?"
	buyQuestion   = "Buy 10 stocks of AAPL at current price. What is the total cost?"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

type flags struct {
	configPath  string
	threadID    string
	interactive bool
	ask         string
	resume      string
	plain       bool
	graphPath   string
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&f.threadID, "thread", "", "conversation thread id (random when empty)")
	flag.BoolVar(&f.interactive, "i", false, "interactive chat")
	flag.StringVar(&f.ask, "ask", "", "send one message on the thread and exit")
	flag.StringVar(&f.resume, "resume", "", "answer the pending approval on the thread (yes/no) and exit")
	flag.BoolVar(&f.plain, "plain", false, "plain output and line-based approval prompt")
	flag.StringVar(&f.graphPath, "graph", "", "write the graph diagram (Mermaid) to this path")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.graphPath != "" {
		cfg.Graph.MermaidPath = f.graphPath
	}

	logger := logging.New(cfg.Log)
	defer func() { _ = logger.Sync() }()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Graph.MermaidPath != "" {
		if err := agent.WriteMermaid(cfg.Graph.MermaidPath, app.runtime.Topology()); err != nil {
			logger.Warn("failed to write graph diagram", zap.Error(err))
		} else {
			logger.Info("graph diagram written", zap.String("path", cfg.Graph.MermaidPath))
		}
	}

	printer := renderer.NewPrinter(os.Stdout, renderer.Options{
		Plain:    f.plain,
		Markdown: cfg.UI.Markdown,
	})

	var prompter approval.Prompter
	line := approval.NewLinePrompter(os.Stdin, os.Stdout)
	if f.plain || cfg.UI.Prompt == "line" {
		prompter = line
	} else {
		prompter = approval.NewTeaPrompter(nil, nil)
	}

	threadID := f.threadID
	if threadID == "" {
		if f.resume != "" {
			return errors.New("-resume requires -thread")
		}
		threadID = uuid.NewString()
	}

	s := &session{
		runtime:  app.runtime,
		printer:  printer,
		prompter: prompter,
		threadID: threadID,
	}

	switch {
	case f.resume != "":
		return s.resume(ctx, f.resume)
	case f.ask != "":
		return s.ask(ctx, f.ask, false)
	case f.interactive:
		return s.repl(ctx, line)
	default:
		return s.script(ctx)
	}
}

// session 在一个线程上驱动 Runtime 并输出结果
type session struct {
	runtime  *agent.Runtime
	printer  *renderer.Printer
	prompter approval.Prompter
	threadID string
}

// script 复现默认的两轮对话：查询价格，然后买入并等待审批
func (s *session) script(ctx context.Context) error {
	s.printer.PrintSystem("thread %s", s.threadID)

	if err := s.ask(ctx, priceQuestion, false); err != nil {
		return err
	}
	return s.ask(ctx, buyQuestion, true)
}

// ask 发送一条消息。approve 为 true 时遇到中断会立即询问并恢复
func (s *session) ask(ctx context.Context, text string, approve bool) error {
	s.printer.PrintUser(text)

	res, err := s.runtime.Ask(ctx, s.threadID, text)
	if err != nil {
		return err
	}
	s.printer.PrintResult(res)

	if !res.Interrupted() {
		return nil
	}
	if !approve {
		s.printer.PrintSystem("approval pending, answer with: -thread %s -resume yes|no", s.threadID)
		return nil
	}
	return s.decide(ctx)
}

// decide 询问审批结果并恢复执行，直到不再中断
func (s *session) decide(ctx context.Context) error {
	for {
		decision, err := s.prompter.Decide(ctx, approval.DefaultQuestion)
		if err != nil {
			return err
		}

		res, err := s.runtime.Resume(ctx, s.threadID, decision)
		if err != nil {
			return err
		}
		s.printer.PrintResult(res)

		if !res.Interrupted() {
			return nil
		}
	}
}

func (s *session) resume(ctx context.Context, decision string) error {
	res, err := s.runtime.Resume(ctx, s.threadID, decision)
	if err != nil {
		return err
	}
	s.printer.PrintResult(res)
	return nil
}

// repl 交互式对话；/reset 清空线程，exit 退出
func (s *session) repl(ctx context.Context, in approval.Prompter) error {
	s.printer.PrintSystem("thread %s (type exit to quit, /reset to start over)", s.threadID)

	// 上次未完成的审批
	if pending, err := s.runtime.Pending(ctx, s.threadID); err == nil && pending != nil {
		s.printer.PrintInterrupt(pending)
		if err := s.decide(ctx); err != nil {
			return err
		}
	}

	for {
		text, err := in.Decide(ctx, "> ")
		if errors.Is(err, approval.ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		text = strings.TrimSpace(text)
		switch text {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			if err := s.runtime.Reset(ctx, s.threadID); err != nil {
				s.printer.PrintError(err)
			}
			s.printer.PrintSystem("thread %s reset", s.threadID)
			continue
		}

		res, err := s.runtime.Ask(ctx, s.threadID, text)
		if err != nil {
			s.printer.PrintError(err)
			continue
		}
		s.printer.PrintResult(res)
		if res.Interrupted() {
			if err := s.decide(ctx); err != nil {
				return err
			}
		}
	}
}
