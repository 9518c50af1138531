package vision

// COCO 17-keypoint anatomical order used by pose models.
const (
	KeypointNose          = 0
	KeypointLeftEye       = 1
	KeypointRightEye      = 2
	KeypointLeftEar       = 3
	KeypointRightEar      = 4
	KeypointLeftShoulder  = 5
	KeypointRightShoulder = 6
	KeypointLeftElbow     = 7
	KeypointRightElbow    = 8
	KeypointLeftWrist     = 9
	KeypointRightWrist    = 10
	KeypointLeftHip       = 11
	KeypointRightHip      = 12
	KeypointLeftKnee      = 13
	KeypointRightKnee     = 14
	KeypointLeftAnkle     = 15
	KeypointRightAnkle    = 16

	NumKeypoints = 17
)

var KeypointNames = []string{
	"nose",
	"left eye",
	"right eye",
	"left ear",
	"right ear",
	"left shoulder",
	"right shoulder",
	"left elbow",
	"right elbow",
	"left wrist",
	"right wrist",
	"left hip",
	"right hip",
	"left knee",
	"right knee",
	"left ankle",
	"right ankle",
}

// Skeleton lists the keypoint index pairs that are connected when drawing a
// pose. A limb is only drawn when both endpoints reach KeypointDrawThreshold.
var Skeleton = [][2]int{
	{KeypointLeftAnkle, KeypointLeftKnee},
	{KeypointLeftKnee, KeypointLeftHip},
	{KeypointRightAnkle, KeypointRightKnee},
	{KeypointRightKnee, KeypointRightHip},
	{KeypointLeftHip, KeypointRightHip},
	{KeypointLeftShoulder, KeypointLeftHip},
	{KeypointRightShoulder, KeypointRightHip},
	{KeypointLeftShoulder, KeypointRightShoulder},
	{KeypointLeftShoulder, KeypointLeftElbow},
	{KeypointRightShoulder, KeypointRightElbow},
	{KeypointLeftElbow, KeypointLeftWrist},
	{KeypointRightElbow, KeypointRightWrist},
	{KeypointLeftEye, KeypointRightEye},
	{KeypointNose, KeypointLeftEye},
	{KeypointNose, KeypointRightEye},
	{KeypointLeftEye, KeypointLeftEar},
	{KeypointRightEye, KeypointRightEar},
	{KeypointLeftEar, KeypointLeftShoulder},
	{KeypointRightEar, KeypointRightShoulder},
}

// KeypointDrawThreshold gates drawing of individual joints and limbs.
const KeypointDrawThreshold = 0.25
