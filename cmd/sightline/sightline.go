package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sightline/pkg/camera"
	"github.com/cyclopcam/sightline/pkg/decode"
	"github.com/cyclopcam/sightline/pkg/ort"
	"github.com/cyclopcam/sightline/pkg/predict"
	"github.com/cyclopcam/sightline/pkg/stream"
)

func main() {
	parser := argparse.NewParser("sightline", "Run YOLO models on images or a live stream")
	modelConfig := parser.String("m", "model", &argparse.Options{Help: "Model config JSON file", Required: true})
	confThreshold := parser.Float("", "conf", &argparse.Options{Help: "Confidence threshold", Default: float64(decode.DefaultConfidenceThreshold)})
	iouThreshold := parser.Float("", "iou", &argparse.Options{Help: "NMS IoU threshold", Default: float64(decode.DefaultIOUThreshold)})
	maxDetections := parser.Int("", "max", &argparse.Options{Help: "Maximum detections per frame", Default: decode.DefaultMaxDetections})
	streamFor := parser.Int("", "stream", &argparse.Options{Help: "Stream from a synthetic camera for this many seconds instead of reading images", Default: 0})
	images := parser.StringList("i", "image", &argparse.Options{Help: "Image file to run (repeatable)"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := ort.LoadConfig(*modelConfig)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	task, err := decode.ParseTask(cfg.Task)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	engine, err := ort.NewEngine(*cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	settings := decode.Settings{
		ConfidenceThreshold: float32(*confThreshold),
		IOUThreshold:        float32(*iouThreshold),
		MaxDetections:       *maxDetections,
	}
	predictor, err := predict.NewPredictor(logger, engine, task, settings)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer predictor.Close()

	if *streamFor > 0 {
		runStream(logger, predictor, time.Duration(*streamFor)*time.Second)
		return
	}

	if len(*images) == 0 {
		logger.Errorf("Nothing to do: give me --image files or --stream seconds")
		os.Exit(1)
	}
	for _, filename := range *images {
		img, err := cimg.ReadFile(filename)
		if err != nil {
			logger.Errorf("Failed to read %v: %v", filename, err)
			os.Exit(1)
		}
		result, err := predictor.Predict(img)
		if err != nil {
			logger.Errorf("Failed to run %v: %v", filename, err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Printf("%v:\n%v\n", filename, string(out))
	}
}

// runStream exercises the full pipeline against a synthetic camera, which
// is useful for timing a model without any capture hardware.
func runStream(logger logs.Log, predictor *predict.Predictor, duration time.Duration) {
	source := camera.NewSyntheticSource(1920, 1080, 33*time.Millisecond)
	session, err := stream.NewSession(logger, source, predictor)
	if err != nil {
		logger.Errorf("Failed to start stream: %v", err)
		os.Exit(1)
	}
	defer session.Stop()

	deadline := time.After(duration)
	frames := 0
	for {
		select {
		case result, ok := <-session.Results():
			if !ok {
				return
			}
			frames++
			logger.Infof("Frame %v: %v boxes, %.1f FPS, %.1f ms", frames, len(result.Boxes), result.FPS, float64(result.Speed.Microseconds())/1000)
		case <-deadline:
			logger.Infof("Done: %v frames decoded in %v", frames, duration)
			return
		}
	}
}
