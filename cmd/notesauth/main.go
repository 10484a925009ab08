package main

import "github.com/jrsteele09/notes-auth-client/cmd/notesauth/cmd"

func main() {
	cmd.Execute()
}
