package main

import (
	"fmt"
)

// tailAudit prints the n most recent audit entries, oldest first,
// in the trail's own line format.
func (cli *commandLine) tailAudit(n int) error {
	entries, err := cli.sink.Tail(n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("audit trail is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Println(e.MarshalLine())
	}
	return nil
}
