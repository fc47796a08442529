package main

import (
	"fmt"

	"github.com/MaximallyHack/Maximally-Hack-sub003/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
