package approval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#565f89")).
			Padding(0, 1)
)

// confirmModel 单行输入的审批对话框
type confirmModel struct {
	question  string
	input     textinput.Model
	decision  string
	submitted bool
	cancelled bool
}

func newConfirmModel(question string) confirmModel {
	ti := textinput.New()
	ti.Placeholder = "yes / no"
	ti.Prompt = "> "
	ti.CharLimit = 32
	ti.Width = 20
	ti.Focus()

	return confirmModel{question: question, input: ti}
}

// Init 初始化组件
func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update 处理按键：Enter 提交，Esc/Ctrl+C 取消
func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.decision = strings.TrimSpace(m.input.Value())
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View 渲染组件视图
func (m confirmModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	body := titleStyle.Render("Approval required") + "\n" +
		m.question + "\n\n" +
		m.input.View() + "\n" +
		hintStyle.Render("enter to submit · esc to cancel")
	return boxStyle.Render(body) + "\n"
}

// TeaPrompter 用 bubbletea 对话框获取决策
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTeaPrompter 创建 TeaPrompter。in/out 为 nil 时使用终端
func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

// Decide 实现 Prompter
func (p *TeaPrompter) Decide(ctx context.Context, question string) (string, error) {
	if question == "" {
		question = DefaultQuestion
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(newConfirmModel(question), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("run approval dialog: %w", err)
	}

	m, ok := final.(confirmModel)
	if !ok || m.cancelled || !m.submitted {
		return "", ErrCancelled
	}
	return m.decision, nil
}
