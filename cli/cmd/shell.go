package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

var (
	shellWriter string
	shellReader string
)

const shellHelp = `Commands:
  set <path> <json>      stage a value on the writer; null clears the member
  merge <json>           merge an object into the staged record
  clear [path]           reset one member, or the whole record
  show                   print the staged record
  write [action]         publish the staged record (write, dispose, unregister)
  read | take            load the reader's samples and print them
  get <index> [path]     print a member of a loaded sample
  info <index> <key>     print sample metadata
  path <expression>      print the segments of a field path
  help                   print this message`

type shell struct {
	out *connector.Output
	in  *connector.Input
	w   io.Writer
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactively stage, write and read samples",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c := openConnector(ctx)
		defer c.Close()
		out, err := c.Output(shellWriter)
		checkErr(err)
		in, err := c.Input(shellReader)
		checkErr(err)
		home, _ := os.UserHomeDir()
		l, err := readline.NewEx(&readline.Config{
			Prompt:          "dynconn > ",
			HistoryFile:     filepath.Join(home, ".dynconn_history"),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		checkErr(err)
		defer l.Close()
		l.CaptureExitSignal()

		sh := &shell{out: out, in: in, w: l.Stdout()}
		fmt.Fprintln(sh.w, `Type "help" for help.`)
		for {
			line, err := l.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return
				}
				checkErr(err)
			}
			if err := sh.execute(strings.TrimSpace(line)); err != nil {
				fmt.Fprintln(sh.w, "ERROR: "+err.Error())
			}
		}
	},
}

func (sh *shell) execute(line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "":
		return nil
	case "help", "\\h":
		fmt.Fprintln(sh.w, shellHelp)
		return nil
	case "set":
		path, value, ok := strings.Cut(rest, " ")
		if !ok {
			return errors.New("usage: set <path> <json>")
		}
		c, err := wire.Unmarshal([]byte(value))
		if err != nil {
			return err
		}
		return sh.out.Instance().Set(path, c)
	case "merge":
		c, err := wire.Unmarshal([]byte(rest))
		if err != nil {
			return err
		}
		return sh.out.Instance().SetDictionary(c)
	case "clear":
		if rest == "" {
			return sh.out.ClearMembers()
		}
		return sh.out.Instance().ClearMember(rest)
	case "show":
		obj, err := sh.out.Instance().Dictionary()
		if err != nil {
			return err
		}
		return sh.print(obj)
	case "write":
		if rest == "" {
			return sh.out.Write()
		}
		return sh.out.Write(connector.WithAction(engine.Action(rest)))
	case "read", "take":
		load := sh.in.Take
		if cmd == "read" {
			load = sh.in.Read
		}
		if err := load(); err != nil {
			return err
		}
		it := sh.in.Samples().Iter()
		for it.Next() {
			line, _, err := describeSample(it.Sample())
			if err != nil {
				return err
			}
			fmt.Fprintf(sh.w, "[%d] %s\n", it.Index(), line)
		}
		return it.Err()
	case "get", "info":
		index, arg, _ := strings.Cut(rest, " ")
		i, err := strconv.Atoi(index)
		if err != nil {
			return fmt.Errorf("invalid index %q", index)
		}
		s, err := sh.in.Samples().At(i)
		if err != nil {
			return err
		}
		var c wire.Complex
		if cmd == "info" {
			c, err = s.Info().Get(arg)
		} else {
			c, _, err = s.Complex(arg)
		}
		if err != nil {
			return err
		}
		return sh.print(c)
	case "path":
		p, err := fieldpath.Parse(rest)
		if err != nil {
			return err
		}
		for i, seg := range p {
			fmt.Fprintf(sh.w, "%d %s\n", i, seg)
		}
		return nil
	}
	return fmt.Errorf("unrecognized command %q", cmd)
}

func (sh *shell) print(c wire.Complex) error {
	data, err := wire.Marshal(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.w, string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.PersistentFlags().StringVarP(&shellWriter, "writer", "w", shapesWriter, "writer to stage and publish on")
	shellCmd.PersistentFlags().StringVarP(&shellReader, "reader", "r", shapesReader, "reader to load samples from")
}
