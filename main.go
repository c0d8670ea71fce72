package main

import (
	"fmt"

	"github.com/pushgate/pushgate/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
