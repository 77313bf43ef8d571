package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/xaitan80/webserver/internal/request"
)

// printRequest writes the parsed request in the layout used when debugging
// the parser by hand.
func printRequest(r *request.Request) {
	fmt.Println("Request line:")
	fmt.Printf("- Method: %s\n", r.RequestLine.Method)
	fmt.Printf("- Target: %s\n", r.RequestLine.RequestTarget)
	fmt.Printf("- Version: %s\n", r.RequestLine.Protocol)

	fmt.Println("Headers:")
	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("- %s: %s\n", k, r.Headers[k])
	}

	if r.HasBody {
		fmt.Println("Body:")
		fmt.Println(r.Body)
	}
}

func main() {
	port := flag.IntP("port", "p", 42069, "port to listen on")
	flag.Parse()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		fmt.Println("listen error:", err)
		os.Exit(1)
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			fmt.Println("accept error:", err)
			continue
		}
		fmt.Println("accepted connection")

		go func(c net.Conn) {
			defer func() {
				c.Close()
				fmt.Println("closed connection")
			}()
			r, err := request.FromReader(c)
			if err != nil {
				fmt.Println("parse error:", err)
				return
			}
			printRequest(r)
		}(conn)
	}
}
