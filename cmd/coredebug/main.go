// coredebug loads a raw binary or C64 .prg file into RAM and starts an
// interactive single-step debugger for the 6510 core.
package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"gopkg.in/urfave/cli.v2"

	"github.com/berisd/go6510/bus"
	"github.com/berisd/go6510/chips"
	"github.com/berisd/go6510/cpu"
	"github.com/berisd/go6510/internal/debugtui"
	"github.com/berisd/go6510/memory"
)

func run(c *cli.Context) error {
	fn := c.Args().First()
	if fn == "" {
		cli.ShowAppHelp(c)
		return cli.Exit("a filename is required", 1)
	}
	startPC := uint16(c.Int("start-pc"))

	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return cli.Exit(fmt.Sprintf("can't open %s: %v", fn, err), 1)
	}

	ram, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("can't initialize RAM: %v", err), 1)
	}
	ram.PowerOn()

	if strings.EqualFold(fnSuffix(fn), "prg") {
		startPC = (uint16(b[1]) << 8) | uint16(b[0])
		b = b[2:]
	}
	for i, v := range b {
		ram.Write(startPC+uint16(i), v)
	}
	ram.Write(cpu.RESET_VECTOR, uint8(startPC&0xFF))
	ram.Write(cpu.RESET_VECTOR+1, uint8(startPC>>8))

	mem := memory.NewBank2RAM(ram)
	d := bus.New(mem, chips.NewStubVIC(), chips.NewStubCIA(), chips.NewStubCIA())
	core, err := cpu.NewCore(&cpu.CoreDef{Bus: d, Debug: true})
	if err != nil {
		return cli.Exit(fmt.Sprintf("can't initialize cpu: %v", err), 1)
	}

	if _, err := debugtui.New(core, ram).Run(); err != nil {
		return cli.Exit(fmt.Sprintf("debugger exited with error: %v", err), 1)
	}
	return nil
}

func fnSuffix(fn string) string {
	parts := strings.Split(fn, ".")
	return parts[len(parts)-1]
}

func main() {
	app := &cli.App{
		Name:  "coredebug",
		Usage: "interactive single-step debugger for the 6510 core",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "start-pc",
				Usage: "PC to start execution at; ignored for .prg files",
				Value: 0x0800,
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
