// Command dframe benchmarks data frames and manages their pages.
package main

func main() {
	Execute()
}
