// facemark shows a live webcam feed with detected faces boxed and their
// 68 facial landmarks marked.
//
// Usage:
//
//	facemark window            # bare OpenCV window, q or Esc to quit
//	facemark panel             # control panel with start/stop and overlay toggles
//	facemark panel --web :8080 # plus a browser preview
package main

func main() {
	Execute()
}
