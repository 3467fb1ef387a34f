// command lfridctl drives the LF RFID codec core from a Raspberry Pi:
// decode a live tag, emulate a saved one, program a T5577 clone, or edit
// a profile file directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"lfrfid.io/driver/gpio125"
	"lfrfid.io/edge"
	"lfrfid.io/profile"
	"lfrfid.io/proto"
	"lfrfid.io/rfid"
	"lfrfid.io/waveform"
)

var (
	captureGPIO = flag.String("capture-gpio", "GPIO27", "capture input pin name")
	driveGPIO   = flag.String("drive-gpio", "GPIO17", "antenna drive output pin name")
	pullGPIO    = flag.String("pull-gpio", "GPIO22", "antenna pull output pin name")
	profilePath = flag.String("profile", "", "profile file path")
)

const drivePin waveform.Pin = 0

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lfridctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <decode|emulate|program|profile> ...\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return errors.New("missing subcommand")
	}
	switch args[0] {
	case "decode":
		return runDecode()
	case "emulate":
		return runEmulate()
	case "program":
		return runProgram(args[1:])
	case "profile":
		return runProfile(args[1:])
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func openDevice() (*gpio125.Device, error) {
	return gpio125.Open(*captureGPIO, *driveGPIO, *pullGPIO, drivePin)
}

// runDecode captures live edges for 30 seconds (StartRead keeps reading
// after a match), then prints the last decoded TagInfo, optionally saving
// it to -profile.
func runDecode() error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	stream := edge.NewStream()
	src := edge.NewSource(stream)
	registry := rfid.NewDefaultRegistry()
	w := rfid.NewWorker(stream, registry, dev, dev, dev)

	go func() { _ = src.Run(dev) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.StartRead(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	tag := w.Tag()
	if tag.Status != proto.StatusDetected {
		return errors.New("no tag detected within timeout")
	}
	fmt.Printf("protocol=%s uid=%x bitrate=%d\n", tag.Protocol, tag.UID, tag.BitrateKHz)
	if *profilePath != "" {
		return saveProfile(tag)
	}
	return nil
}

func saveProfile(tag proto.TagInfo) error {
	store := profile.Open(*profilePath)
	desc := proto.DescriptorFor(tag.Protocol)
	if err := store.Set("Filetype", "RFID Tag"); err != nil {
		return err
	}
	if err := store.Set("Protocol", desc.Name); err != nil {
		return err
	}
	if err := store.SetHexBytes("UID", tag.UID); err != nil {
		return err
	}
	if tag.Protocol == proto.EM4100 {
		if err := store.Set("Bitrate", fmt.Sprint(tag.BitrateKHz)); err != nil {
			return err
		}
	}
	return nil
}

func loadProfile() (proto.TagInfo, error) {
	if *profilePath == "" {
		return proto.TagInfo{}, errors.New("no -profile given")
	}
	store := profile.Open(*profilePath)
	name, err := store.Get("Protocol")
	if err != nil {
		return proto.TagInfo{}, err
	}
	uid, err := store.GetHexBytes("UID")
	if err != nil {
		return proto.TagInfo{}, err
	}
	var id proto.ID
	switch name {
	case "EM4100":
		id = proto.EM4100
	case "H10301":
		id = proto.H10301
	default:
		return proto.TagInfo{}, fmt.Errorf("unknown protocol %q", name)
	}
	ti := proto.TagInfo{UID: uid, Protocol: id, Status: proto.StatusDetected}
	if id == proto.EM4100 {
		br, err := store.GetUint("Bitrate")
		if err != nil {
			return proto.TagInfo{}, err
		}
		ti.BitrateKHz = uint16(br)
	}
	return ti, nil
}

func runEmulate() error {
	tag, err := loadProfile()
	if err != nil {
		return err
	}
	dev, err := openDevice()
	if err != nil {
		return err
	}
	w := rfid.NewWorker(edge.NewStream(), rfid.NewDefaultRegistry(), dev, dev, dev)
	w.SetTag(tag)
	fmt.Println("emulating, press Ctrl+C to stop")
	return w.StartEmulate(drivePin)
}

func runProgram(args []string) error {
	fs := flag.NewFlagSet("program", flag.ExitOnError)
	password := fs.String("password", "", "8 hex digit password")
	fs.Parse(args)

	tag, err := loadProfile()
	if err != nil {
		return err
	}
	if tag.Protocol != proto.EM4100 {
		return errors.New("program only supports EM4100 clones")
	}
	dev, err := openDevice()
	if err != nil {
		return err
	}
	var pass []byte
	if *password != "" {
		pass, err = parseHexPassword(*password)
		if err != nil {
			return err
		}
	} else if pass, err = profile.Open(*profilePath).GetPassword(); err != nil && !errors.Is(err, profile.ErrKeyNotFound) {
		return err
	}
	w := rfid.NewWorker(edge.NewStream(), rfid.NewDefaultRegistry(), dev, dev, dev)
	w.SetTag(tag)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.StartWrite(ctx, pass); err != nil {
		return err
	}
	fmt.Println("program OK")
	return nil
}

func parseHexPassword(s string) ([]byte, error) {
	var b [4]byte
	n, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &b[0], &b[1], &b[2], &b[3])
	if err != nil || n != 4 {
		return nil, fmt.Errorf("invalid password %q: want 8 hex digits", s)
	}
	return b[:], nil
}

func runProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	fs.Parse(args)
	if *profilePath == "" {
		return errors.New("missing -profile")
	}
	rest := fs.Args()
	store := profile.Open(*profilePath)
	switch {
	case len(rest) == 1:
		v, err := store.Get(rest[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case len(rest) == 2:
		return store.Set(rest[0], rest[1])
	default:
		return errors.New("usage: profile <key> [value]")
	}
}
