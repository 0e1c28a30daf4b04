//go:build !unix

package npm

import "os/exec"

func killGroupOnCancel(*exec.Cmd) {}
