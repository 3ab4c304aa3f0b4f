// Package goid 获取当前 goroutine 的 id。
//
// id 从 runtime.Stack 的首行（"goroutine 123 [running]:"）解析得到，
// 只用作按 goroutine 保存调度状态的键。
package goid

import (
	"runtime"
)

const prefix = len("goroutine ")

// Get 返回当前 goroutine 的 id
func Get() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

func parse(b []byte) int64 {
	if len(b) <= prefix {
		return -1
	}
	var id int64
	for _, c := range b[prefix:] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
