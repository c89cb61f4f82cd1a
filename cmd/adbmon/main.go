// adbmon tails a bridge's serial port and reformats its periodic
// status lines into aligned columns.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jacobsa/go-serial/serial"
)

var columns = []string{
	"up", "polls", "talks", "rst", "cb", "kq", "mq", "kbd", "mou", "free", "kage", "mage",
}

func main() {
	var (
		port    = flag.String("port", "/dev/ttyUSB0", "serial port")
		baud    = flag.Uint("baud", 115200, "baud rate")
		verbose = flag.Bool("v", false, "echo non-status lines too")
	)
	flag.Parse()

	opts := serial.OpenOptions{
		PortName:        *port,
		BaudRate:        *baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	f, err := serial.Open(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.HasPrefix(line, "[STATUS] ") {
			if *verbose && line != "" {
				fmt.Println(line)
			}
			continue
		}
		if n%20 == 0 {
			printHeader()
		}
		printRow(parse(line))
		n++
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

func parse(line string) map[string]string {
	vals := make(map[string]string)
	for _, field := range strings.Fields(strings.TrimPrefix(line, "[STATUS] ")) {
		k, v, ok := strings.Cut(field, "=")
		if ok {
			vals[k] = v
		}
	}
	return vals
}

func printHeader() {
	for _, c := range columns {
		fmt.Printf("%-9s", c)
	}
	fmt.Println()
}

func printRow(vals map[string]string) {
	for _, c := range columns {
		v := vals[c]
		if v == "" {
			v = "-"
		}
		fmt.Printf("%-9s", v)
	}
	fmt.Println()
}
