package main

import "roomdesk/internal/roomctl"

func main() {
	roomctl.Execute()
}
