package main

import "fmt"

func (cli *commandLine) sendDigest() error {
	n, err := cli.digest.Run(cli.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("sent %d digests\n", n)
	return nil
}
