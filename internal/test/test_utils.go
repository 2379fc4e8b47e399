// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package shmlock_testing contains helpers for tests, which need several processes.
package shmlock_testing

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// TestAppResult is a result of a 'go run' program launch
type TestAppResult struct {
	Output string
	Err    error
}

// StringToBytes takes an input string in a 2-hex-symbol per byte format
// and returns corresponding byte array.
func StringToBytes(input string) ([]byte, error) {
	if len(input)%2 != 0 {
		return nil, fmt.Errorf("invalid byte array len")
	}
	return hex.DecodeString(input)
}

// BytesToString convert a byte slice into its string representation.
// Each byte is represented as a 2 upper-case letters for A-F
func BytesToString(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// launch helpers

func startTestApp(args []string, killChan <-chan bool) (*exec.Cmd, *bytes.Buffer, error) {
	args = append([]string{"run"}, args...)
	cmd := exec.Command("go", args...)
	buff := bytes.NewBuffer(nil)
	cmd.Stderr = buff
	cmd.Stdout = buff
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	if killChan != nil {
		go func() {
			if kill, ok := <-killChan; kill && ok {
				if cmd.ProcessState == nil {
					cmd.Process.Kill()
				}
			}
		}()
	}
	return cmd, buff, nil
}

func waitForCommand(cmd *exec.Cmd, buff *bytes.Buffer) (result TestAppResult) {
	if result.Err = cmd.Wait(); result.Err != nil {
		if exiterr, ok := result.Err.(*exec.ExitError); ok {
			if status, ok := exiterr.Sys().(syscall.WaitStatus); ok {
				result.Err = fmt.Errorf("%v, status code = %d", result.Err, status.ExitStatus())
			}
		}
	}
	result.Output = buff.String()
	return
}

// RunTestApp starts a go program via 'go run' and waits for it to finish.
// To kill the process, send to killChan
func RunTestApp(args []string, killChan <-chan bool) (result TestAppResult) {
	if cmd, buff, err := startTestApp(args, killChan); err == nil {
		result = waitForCommand(cmd, buff)
	} else {
		result.Err = err
	}
	return
}

// RunTestAppAsync starts a go program via 'go run' and returns immediately.
// To kill the process, send to killChan.
// To wait for the program to finish, receive on TestAppResult chan.
func RunTestAppAsync(args []string, killChan <-chan bool) <-chan TestAppResult {
	ch := make(chan TestAppResult, 1)
	if cmd, buff, err := startTestApp(args, killChan); err != nil {
		ch <- TestAppResult{Err: err}
	} else {
		go func() {
			ch <- waitForCommand(cmd, buff)
		}()
	}
	return ch
}

// WaitForAppResultChan waits for a value from ch with a timeout
func WaitForAppResultChan(ch <-chan TestAppResult, d time.Duration) (TestAppResult, bool) {
	select {
	case value := <-ch:
		return value, true
	case <-time.After(d):
		return TestAppResult{}, false
	}
}

// WaitFor polls cond every 10ms until it returns true or d elapses.
func WaitFor(cond func() bool, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// DeadPid returns a pid of a process, which has already exited and was reaped.
// The pid may be reused by the system, but it is unlikely within a test.
func DeadPid() (int, error) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		return 0, err
	}
	return cmd.ProcessState.Pid(), nil
}
