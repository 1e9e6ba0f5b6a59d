package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"skald/internal/jobs"
)

// Fixed artifact names inside a job's working directory. Downstream stages
// and the status surface rely on these staying stable.
const (
	voiceOverName    = "voice_over.mp3"
	podcastAudioName = "podcast_audio.mp3"
	scriptName       = "podcast_script.txt"
	backgroundName   = "background_music.wav"
	musicTrackName   = "generated_music.wav"
	videoName        = "content_video.mp4"
	outlineName      = "book_outline.txt"
	bookDirName      = "book_content"
	fullBookName     = "full_book.txt"
	imagesDirName    = "images"
)

func contentTextName(kind jobs.ContentType) string {
	if kind == jobs.TypeEducational {
		return "educational_content.txt"
	}
	return "story_content.txt"
}

func contentTextPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, contentTextName(job.ContentType))
}

func imagesDir(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, imagesDirName)
}

func narrationPath(job *jobs.Job) string {
	if job.ContentType == jobs.TypePodcast {
		return filepath.Join(job.WorkDir, podcastAudioName)
	}
	return filepath.Join(job.WorkDir, voiceOverName)
}

func scriptPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, scriptName)
}

func backgroundMusicPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, backgroundName)
}

func videoPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, videoName)
}

func outlinePath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, outlineName)
}

func bookContentDir(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, bookDirName)
}

func fullBookPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, fullBookName)
}

func musicTrackPath(job *jobs.Job) string {
	return filepath.Join(job.WorkDir, musicTrackName)
}

func postPath(job *jobs.Job) string {
	if job.Slug == "" {
		return filepath.Join(job.WorkDir, "post.txt")
	}
	return filepath.Join(job.WorkDir, fmt.Sprintf("post_%s.txt", job.Slug))
}

var sceneImagePattern = regexp.MustCompile(`^scene_(\d+)\.jpg$`)

// listImages returns the job's frame sequence: the main image first, then
// scene images ordered by their numeric index.
func listImages(job *jobs.Job) ([]string, error) {
	dir := imagesDir(job)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []string
	type scene struct {
		index int
		path  string
	}
	var scenes []scene
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "main.jpg" {
			images = append(images, filepath.Join(dir, name))
			continue
		}
		if m := sceneImagePattern.FindStringSubmatch(name); m != nil {
			index, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			scenes = append(scenes, scene{index: index, path: filepath.Join(dir, name)})
		}
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].index < scenes[j].index })
	for _, s := range scenes {
		images = append(images, s.path)
	}
	return images, nil
}
