// Package debugtui implements an interactive single-step debugger for a
// cpu.Core, rendered as a bubbletea program with lipgloss-styled panes for
// registers, a RAM page table and the surrounding disassembly.
package debugtui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/berisd/go6510/cpu"
	"github.com/berisd/go6510/disassemble"
	"github.com/berisd/go6510/memory"
)

var (
	paneStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	pcStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	tipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	core   *cpu.Core
	mem    memory.Bank
	cycle  uint32
	err    error
	halted bool
}

// New returns a bubbletea program wired to core and the memory bank backing
// its bus, ready to Run.
func New(core *cpu.Core, mem memory.Bank) *tea.Program {
	return tea.NewProgram(model{core: core, mem: mem})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "s":
			if m.halted {
				return m, nil
			}
			for {
				err := m.core.Tick(m.cycle)
				done := m.core.InstructionDone()
				m.core.TickDone()
				m.cycle++
				if err != nil {
					m.err = err
					m.halted = true
					break
				}
				if done {
					break
				}
			}
		case "i":
			m.core.SetVICIRQ(true)
		case "n":
			m.core.SetNMI(true)
		case "r":
			for {
				done, err := m.core.Reset()
				if err != nil {
					m.err = err
					m.halted = true
					break
				}
				if done {
					m.err = nil
					m.halted = false
					break
				}
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m model) View() string {
	status := m.statusPane()
	page := m.pagePane()
	code := m.codePane()
	tips := tipStyle.Render("space/s = step    i = IRQ    n = NMI    r = reset    q = quit")

	if m.err != nil {
		status += fmt.Sprintf("\nerr: %v", m.err)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, paneStyle.Render(status), paneStyle.Render(code)),
		paneStyle.Render(page),
		tips,
	)
}

func (m model) statusPane() string {
	return fmt.Sprintf("A=%.2X X=%.2X Y=%.2X S=%.2X P=%.2X\nPC=%.4X cycle=%d\n%s",
		m.core.A, m.core.X, m.core.Y, m.core.S, m.core.P, m.core.PC, m.cycle, m.core.Debug())
}

func (m model) pagePane() string {
	sb := strings.Builder{}
	base := m.core.PC &^ 0x0F
	for row := uint16(0); row < 4; row++ {
		addr := base + row*16
		sb.WriteString(fmt.Sprintf("%.4X: ", addr))
		for col := uint16(0); col < 16; col++ {
			a := addr + col
			b := m.mem.Read(a)
			if a == m.core.PC {
				sb.WriteString(pcStyle.Render(fmt.Sprintf("%.2X ", b)))
			} else {
				sb.WriteString(fmt.Sprintf("%.2X ", b))
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

func (m model) codePane() string {
	sb := strings.Builder{}
	pc := m.core.PC
	for i := 0; i < 8; i++ {
		line, n := disassemble.Step(pc, m.mem)
		if pc == m.core.PC {
			sb.WriteString(pcStyle.Render(line))
		} else {
			sb.WriteString(line)
		}
		sb.WriteRune('\n')
		pc += uint16(n)
	}
	return sb.String()
}
