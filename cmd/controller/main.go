// cmd/controller/main.go
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/sdk"
)

func printHelp() {
	fmt.Print("Commands:\n" +
		"  help\n" +
		"  start\n" +
		"  stop\n" +
		"  loadcfg <path>\n" +
		"  showcfg\n" +
		"  sensors\n" +
		"  cmds <sensor>\n" +
		"  <sensor> <cmd> [args...]\n" +
		"  quit\n")
}

func report(msg string, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("ok: %s\n", msg)
}

func main() {
	s := sdk.New(os.Stdout, &device.ConsoleConfirmer{In: os.Stdin, Out: os.Stdout})

	msg, err := s.Init()
	if err != nil {
		log.Fatalf("sdk init failed: %v", err)
	}
	fmt.Println("sdk init success: " + msg)
	fmt.Println("Enabled sensors:")
	for _, sensor := range s.EnabledSensors() {
		fmt.Println("  - " + sensor)
	}
	printHelp()

	// Polling starts right away; start/stop stay available interactively.
	startMsg, startErr := s.Start()
	if startErr != nil {
		fmt.Printf("error: auto start: %v\n", startErr)
	} else {
		fmt.Println("ok: auto start: " + startMsg)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("\nasc> ")
		select {
		case <-sigCh:
			fmt.Println()
			report(s.Stop())
			return
		case line, open := <-lines:
			if !open {
				fmt.Println()
				report(s.Stop())
				return
			}
			tokens := strings.Fields(line)
			if len(tokens) == 0 {
				continue
			}
			switch tokens[0] {
			case "quit", "exit":
				report(s.Stop())
				return
			case "help":
				printHelp()
			case "start":
				report(s.Start())
			case "stop":
				report(s.Stop())
			case "loadcfg":
				if len(tokens) < 2 {
					fmt.Println("usage: loadcfg <path>")
					continue
				}
				report(s.LoadConfig(tokens[1]))
			case "showcfg":
				fmt.Print(s.ShowConfig())
			case "sensors":
				for _, sensor := range s.EnabledSensors() {
					fmt.Println("  - " + sensor)
				}
			case "cmds":
				if len(tokens) < 2 {
					fmt.Println("usage: cmds <sensor>")
					continue
				}
				cmds := s.AvailableCommands(tokens[1])
				if cmds == nil {
					fmt.Println("unknown sensor")
					continue
				}
				fmt.Println(tokens[1] + " commands:")
				for _, cmd := range cmds {
					fmt.Println("  - " + cmd)
				}
			default:
				if err := s.DispatchCommand(tokens[0], tokens[1:]); err != nil {
					fmt.Printf("error: %v\n", err)
				}
			}
		}
	}
}
