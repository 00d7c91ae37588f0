//go:build linux

// logctl queries a motion logger over its serial console.
//
// Usage:
//
//	logctl [-c config.yaml] reset          erase the log store
//	logctl [-c config.yaml] count          print the number of stored logs
//	logctl [-c config.yaml] ctrl           print the control flags byte
//	logctl [-c config.yaml] log <id>       dump one log group
//	logctl [-c config.yaml] listen         print verbose telemetry frames
//
// The protocol is unframed: a query for an unknown log id gets no reply at
// all, which surfaces here as a read timeout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"motionlog-go/services/console"
	"motionlog-go/services/recorder/logrec"
	"motionlog-go/services/recorder/logstore"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("logctl: ")

	cfgPath := flag.String("c", "logctl.yaml", "path to the YAML config")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("missing subcommand: reset | count | ctrl | log <id> | listen")
	}

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	port, err := openSerial(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()

	switch cmd := flag.Arg(0); cmd {
	case "reset":
		err = cmdReset(port)
	case "count":
		err = cmdCount(port)
	case "ctrl":
		err = cmdCtrl(port)
	case "log":
		if flag.NArg() < 2 {
			log.Fatal("log: missing id")
		}
		var id uint64
		id, err = strconv.ParseUint(flag.Arg(1), 0, 8)
		if err != nil {
			log.Fatalf("log: bad id %q", flag.Arg(1))
		}
		err = cmdLog(port, byte(id))
	case "listen":
		err = cmdListen(port)
	default:
		log.Fatalf("unknown subcommand %q", cmd)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// query sends one opcode (plus optional argument bytes) and reads exactly
// want bytes back. A short read past the VTIME timeout means the device
// sent nothing.
func query(port *os.File, req []byte, want int) ([]byte, error) {
	if _, err := port.Write(req); err != nil {
		return nil, err
	}
	buf := make([]byte, want)
	n, err := io.ReadFull(port, buf)
	if err == io.ErrUnexpectedEOF || (err == io.EOF && n == 0) {
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func cmdReset(port *os.File) error {
	resp, err := query(port, []byte{console.OpReset}, 1)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return fmt.Errorf("no response; is the logger connected?")
	}
	if resp[0] != console.OpAck {
		return fmt.Errorf("unexpected response 0x%02X", resp[0])
	}
	fmt.Println("log store erased")
	return nil
}

func cmdCount(port *os.File) error {
	resp, err := query(port, []byte{console.OpLogCount}, 1)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return fmt.Errorf("no response; is the logger connected?")
	}
	fmt.Printf("%d logs stored\n", resp[0])
	return nil
}

func cmdCtrl(port *os.File) error {
	resp, err := query(port, []byte{console.OpReadControl}, 1)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return fmt.Errorf("no response; is the logger connected?")
	}
	f := logstore.Flags(resp[0])
	fmt.Printf("control flags: 0x%02X\n", resp[0])
	fmt.Printf("  start:   %v\n", f.Has(logstore.FlagStart))
	fmt.Printf("  config:  %v\n", f.Has(logstore.FlagConfig))
	fmt.Printf("  verbose: %v\n", f.Has(logstore.FlagVerbose))
	fmt.Printf("  reset:   %v\n", f.Has(logstore.FlagReset))
	return nil
}

func cmdLog(port *os.File, id byte) error {
	want := logstore.PagesPerLog * logrec.RecordBytes
	resp, err := query(port, []byte{console.OpReadLog, id}, want)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return fmt.Errorf("no log with id %d", id)
	}
	if len(resp) != want {
		return fmt.Errorf("short reply: %d of %d bytes", len(resp), want)
	}

	for p := 0; p < logstore.PagesPerLog; p++ {
		var page [logrec.RecordBytes]byte
		copy(page[:], resp[p*logrec.RecordBytes:])
		r := logrec.Decode(&page)
		if p == 0 {
			fmt.Printf("log %d  event 0x%02X  t+%ds\n", r.ID, r.EventReg, r.Timestamp)
		}
		fmt.Printf("  page %d: % X\n", p, r.Payload)
	}
	return nil
}

// cmdListen prints telemetry frames until interrupted. The firmware only
// streams while verbose is enabled and acquisition is running.
func cmdListen(port *os.File) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var frame [console.FrameBytes]byte
		n := 0
		buf := make([]byte, 64)
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			r, err := port.Read(buf)
			if err != nil {
				return err
			}
			for _, b := range buf[:r] {
				// Resynchronize on the start marker.
				if n == 0 && b != console.FrameStart {
					continue
				}
				frame[n] = b
				n++
				if n < console.FrameBytes {
					continue
				}
				n = 0
				if frame[4] != console.FrameEnd {
					continue
				}
				fmt.Printf("x=%4d y=%4d z=%4d\n",
					int8(frame[1]), int8(frame[2]), int8(frame[3]))
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}
