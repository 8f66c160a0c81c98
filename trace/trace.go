// Package trace provides parsing of memory reference traces.
//
// A trace is a text file with one memory reference per line, in the format
// produced by valgrind's lackey tool:
//
//	I 0400d7d4,8
//	 L 7ff0005c8,8
//	 S 7ff0005c8,8
//	 M 0421c7f0,4
//
// Each line holds an operation (I = instruction fetch, L = load, S = store,
// M = modify), a hexadecimal address and a decimal access size.
// Instruction fetches are recognized and skipped; they are never simulated.
//
// Usage:
//
//	r := trace.NewReader(file, trace.WithPolicy(trace.PolicySkip))
//	for {
//		rec, err := r.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
package trace
